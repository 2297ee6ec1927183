package dto

// RegisterForm is the multipart body of POST /auth/register. The optional
// profilePicture file part is read separately.
type RegisterForm struct {
	Name     string `form:"name"`
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

type RegisterData struct {
	ID string `json:"id"`
}

type RegisterResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    RegisterData `json:"data"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}
