package services

import (
	"context"
	"testing"

	"github.com/thereayou/chatql/internal/media"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")

	user, err := f.users.Me(context.Background(), id)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@x.com" {
		t.Errorf("got %+v", user)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	ctx := context.Background()

	user, err := f.users.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("Alice Liddell")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Name != "Alice Liddell" || user.Username != "alice" {
		t.Errorf("got %+v", user)
	}

	user, err = f.users.UpdateProfile(ctx, id, ProfileUpdate{Avatar: media.NewFile("a.png", pngData)})
	if err != nil {
		t.Fatalf("UpdateProfile avatar: %v", err)
	}
	if user.AvatarURL != f.uploader.url {
		t.Errorf("avatar = %q", user.AvatarURL)
	}
}

func TestUpdateProfileRejects(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice")
	f.register(t, "bob")

	tests := []struct {
		name string
		upd  ProfileUpdate
		kind error
		msg  string
	}{
		{"nothing", ProfileUpdate{}, ErrValidation, "At least one field must be provided."},
		{"unchanged", ProfileUpdate{Username: ptr("alice"), Email: ptr("alice@x.com")}, ErrValidation, "No changes found."},
		{"short username", ProfileUpdate{Username: ptr("al")}, ErrValidation, ""},
		{"bad email", ProfileUpdate{Email: ptr("alice")}, ErrValidation, ""},
		{"taken username", ProfileUpdate{Username: ptr("bob")}, ErrConflict, ""},
		{"taken email", ProfileUpdate{Email: ptr("bob@x.com")}, ErrConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.UpdateProfile(context.Background(), id, tt.upd)
			assertKind(t, err, tt.kind)
			if tt.msg != "" && err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}
