package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/thereayou/chatql/internal/media"
)

// Date is an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (Date) ImplementsGraphQLType(name string) bool {
	return name == "Date"
}

func (d *Date) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case time.Time:
		d.Time = v
		return nil
	}
	return fmt.Errorf("wrong type for Date: %T", input)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(time.RFC3339Nano))
}

// Upload is a file sent as a multipart request part. It cannot be written
// inline in a query or a JSON body.
type Upload struct {
	File *media.File
}

func (Upload) ImplementsGraphQLType(name string) bool {
	return name == "Upload"
}

func (u *Upload) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case *media.File:
		u.File = v
		return nil
	case Upload:
		u.File = v.File
		return nil
	}
	return fmt.Errorf("wrong type for Upload: %T", input)
}
