package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

func TestSendgridService_SendMessages(t *testing.T) {
	conf, logger := setup(t)
	conf.SendgridAPIKey = "SG.test"
	svc := NewSendgridService(conf, logger)

	var (
		mu   sync.Mutex
		reqs []rest.Request
		done = make(chan struct{})
	)
	svc.api = func(req rest.Request) (*rest.Response, error) {
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()
		close(done)
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: "Dupont", Address: "compta@dupont.fr"}},
		Bcc:     []mail.Address{{Address: "archive@chantier.fr"}},
		Subject: "Facture",
		BodyStr: "Bonjour",
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sendgrid api not called")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, rest.Method(http.MethodPost), req.Method)
	assert.Equal(t, host+endpoint, req.BaseURL)
	assert.Equal(t, "Bearer SG.test", req.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Bcc     []struct{ Email string } `json:"bcc"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "compta@dupont.fr", body.Personalizations[0].To[0].Email)
	assert.Equal(t, "archive@chantier.fr", body.Personalizations[0].Bcc[0].Email)
	assert.Equal(t, "["+conf.AppName+"] Facture", body.Personalizations[0].Subject)
	require.Len(t, body.Content, 1)
	assert.Equal(t, "text/plain", body.Content[0].Type)
	assert.Equal(t, "Bonjour", body.Content[0].Value)
}
