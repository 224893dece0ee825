package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/assets"
	"github.com/deepweb1970/gestionchantier-sub001/core"
	logsvc "github.com/deepweb1970/gestionchantier-sub001/services/logger"
)

func setup(t *testing.T) (*core.Config, core.Logger) {
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, true /* strict */))
	return conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf, logger := setup(t)
	to := []mail.Address{{Name: "Dupont BTP", Address: "compta@dupont.fr"}}

	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
		wantText []string
		wantHTML []string
	}{
		{
			name: "facture",
			msg: &core.EmailMessage{
				To:           to,
				Subject:      "Facture FAC-2024-0001",
				TemplateName: "facture",
				TemplateData: map[string]interface{}{
					"ClientName":   "Dupont BTP",
					"Number":       "FAC-2024-0001",
					"ChantierName": "Rénovation mairie",
					"AmountHT":     1000.0,
					"VATPercent":   20.0,
					"VATAmount":    200.0,
					"TotalTTC":     1200.0,
					"DueDate":      "31/01/2024",
				},
			},
			wantSent: true,
			wantText: []string{"Bonjour Dupont BTP", "FAC-2024-0001", "Montant TTC : 1200.00 EUR", "31/01/2024", conf.AppName},
			wantHTML: []string{"<strong>FAC-2024-0001</strong>", "1200.00 EUR"},
		},
		{
			name: "password reset",
			msg: &core.EmailMessage{
				To:           to,
				Subject:      "Réinitialisation du mot de passe",
				TemplateName: "password_reset",
				TemplateData: map[string]interface{}{"Name": "Paul", "URL": "http://localhost:3000/password-reset/x/y"},
			},
			wantSent: true,
			wantText: []string{"Bonjour Paul", "http://localhost:3000/password-reset/x/y"},
			wantHTML: []string{`href="http://localhost:3000/password-reset/x/y"`},
		},
		{
			name:     "plain body",
			msg:      &core.EmailMessage{To: to, Subject: "Test", BodyStr: "hello"},
			wantSent: true,
			wantText: []string{"hello"},
		},
		{
			name: "no recipients",
			msg:  &core.EmailMessage{Subject: "Test", BodyStr: "hello"},
		},
		{
			name: "no content",
			msg:  &core.EmailMessage{To: to, Subject: "Test", TemplateName: "unknown"},
		},
		{
			name: "missing template data",
			msg:  &core.EmailMessage{To: to, Subject: "Test", TemplateName: "facture", TemplateData: map[string]interface{}{}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewConsoleServiceMock(conf, logger)
			svc.SendMessages(tc.msg)

			sent := svc.SentMessages()
			if !tc.wantSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			for _, s := range tc.wantText {
				assert.Contains(t, sent[0].TextContent, s)
			}
			for _, s := range tc.wantHTML {
				assert.Contains(t, sent[0].HTMLContent, s)
			}
		})
	}
}

func TestConsoleService_format(t *testing.T) {
	conf, logger := setup(t)
	var out bytes.Buffer
	svc := NewConsoleService(conf, &out, logger)
	svc.sync = true

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: "a@test.fr"}},
		Cc:      []mail.Address{{Address: "b@test.fr"}},
		Subject: "Relance",
		BodyStr: "Merci de régler la facture.",
	})

	body := out.String()
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Relance")
	assert.Contains(t, body, "To: <a@test.fr>")
	assert.Contains(t, body, "CC: <b@test.fr>")
	assert.Contains(t, body, "Content-Type: multipart/alternative")
	assert.Contains(t, body, "Merci de régler la facture.")
	assert.NotContains(t, body, "text/html")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
