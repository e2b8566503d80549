package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTemplateRendersCertificateMail(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.example.com", Port: 587, From: "no-reply@academy.local", FromName: "Academy"})
	var gotAddr string
	var gotMsg []byte
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "no-reply@academy.local", from)
		assert.Equal(t, []string{"nimal@example.com"}, to)
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"nimal@example.com"}, "certificate_issued", map[string]any{
		"student_name": "Nimal <b>Perera</b>",
		"course_title": "Combined Maths",
		"issued_at":    "1 May 2026",
		"download_url": "https://cdn.example.com/c.pdf?sig=1",
		"expires_at":   "1 May 2027",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Your certificate is ready")
	assert.Contains(t, body, "Combined Maths")
	assert.Contains(t, body, "Nimal &lt;b&gt;Perera&lt;/b&gt;")
}

func TestSendRequiresRecipients(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.example.com", Port: 25})
	assert.ErrorIs(t, p.Send(context.Background(), nil, "x", "y"), ErrNoRecipients)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}
