package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/thereayou/chatql/internal/media"
)

// maxMultipartMemory bounds the in-memory part of a multipart request; the
// rest spills to temporary files.
const maxMultipartMemory = 32 << 20

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type Handler struct {
	schema *graphql.Schema
}

func NewHandler(schema *graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

// Serve executes a JSON GraphQL request or a multipart one carrying uploads
// (operations, map and one part per file).
func (h *Handler) Serve(c *gin.Context) {
	var (
		req request
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = readMultipart(c.Request)
	} else {
		err = json.NewDecoder(c.Request.Body).Decode(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": err.Error()}}})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "query is required"}}})
		return
	}

	resp := h.schema.Exec(c.Request.Context(), req.Query, req.OperationName, req.Variables)
	c.JSON(http.StatusOK, resp)
}

func readMultipart(r *http.Request) (request, error) {
	var req request
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return req, fmt.Errorf("invalid multipart body: %w", err)
	}
	form := r.MultipartForm

	operations := form.Value["operations"]
	if len(operations) == 0 {
		return req, errors.New("missing operations field")
	}
	if err := json.Unmarshal([]byte(operations[0]), &req); err != nil {
		return req, fmt.Errorf("invalid operations field: %w", err)
	}

	var fileMap map[string][]string
	if raw := form.Value["map"]; len(raw) > 0 {
		if err := json.Unmarshal([]byte(raw[0]), &fileMap); err != nil {
			return req, fmt.Errorf("invalid map field: %w", err)
		}
	}

	for part, paths := range fileMap {
		headers := form.File[part]
		if len(headers) == 0 {
			return req, fmt.Errorf("missing file part %q", part)
		}
		file, err := media.ReadFile(headers[0])
		if err != nil {
			return req, fmt.Errorf("file part %q: %w", part, err)
		}
		for _, path := range paths {
			if err := setVariable(&req, path, file); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}

// setVariable places value at a dotted path such as "variables.file" or
// "variables.files.1".
func setVariable(req *request, path string, value interface{}) error {
	keys := strings.Split(path, ".")
	if len(keys) < 2 || keys[0] != "variables" {
		return fmt.Errorf("invalid map path %q", path)
	}
	if req.Variables == nil {
		req.Variables = map[string]interface{}{}
	}

	var parent interface{} = req.Variables
	for i, key := range keys[1:] {
		last := i == len(keys)-2
		switch node := parent.(type) {
		case map[string]interface{}:
			if last {
				node[key] = value
				return nil
			}
			parent = node[key]
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("invalid map path %q", path)
			}
			if last {
				node[idx] = value
				return nil
			}
			parent = node[idx]
		default:
			return fmt.Errorf("invalid map path %q", path)
		}
	}
	return nil
}
