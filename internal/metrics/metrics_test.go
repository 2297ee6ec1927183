package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/graphql", "200", 15*time.Millisecond)
	m.ObserveUpload(nil)
	m.ObserveUpload(errors.New("down"))
	m.Connections.Inc()
	m.MessagesSent.Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`http_requests_total{method="POST",route="/graphql",status="200"} 1`,
		`media_uploads_total{result="error"} 1`,
		`media_uploads_total{result="ok"} 1`,
		`ws_active_connections 1`,
		`chat_messages_sent_total 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q", want)
		}
	}
}
