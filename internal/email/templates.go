package email

import (
	"fmt"
	"html"
	"strings"
)

// Templates are deliberately inline: two locales, two messages. A template
// directory would be overkill at this size.

func verificationTemplate(locale, name, code string) (subject, html string) {
	if locale == "es" {
		subject = "Tu código de verificación"
		html = fmt.Sprintf(
			"<p>Hola %s,</p><p>Tu código de verificación es <strong>%s</strong>. Caduca en 10 minutos.</p><p>Si no has creado una cuenta, ignora este mensaje.</p>",
			htmlEscape(name), code)
		return subject, html
	}
	subject = "Your verification code"
	html = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p><p>If you did not create an account, you can ignore this message.</p>",
		htmlEscape(name), code)
	return subject, html
}

func passwordResetTemplate(locale, name, code string) (subject, html string) {
	if locale == "es" {
		subject = "Restablece tu contraseña"
		html = fmt.Sprintf(
			"<p>Hola %s,</p><p>Tu código para restablecer la contraseña es <strong>%s</strong>. Caduca en 10 minutos.</p><p>Si no has solicitado el cambio, ignora este mensaje.</p>",
			htmlEscape(name), code)
		return subject, html
	}
	subject = "Reset your password"
	html = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in 10 minutes.</p><p>If you did not request a reset, you can ignore this message.</p>",
		htmlEscape(name), code)
	return subject, html
}

// contactSubjects maps the contact form's topic keys to inbox subjects.
var contactSubjects = map[string]string{
	"soporte":     "Soporte técnico",
	"facturacion": "Facturación",
	"sugerencias": "Sugerencias",
	"otros":       "Otros",
}

func contactTemplate(msg ContactMessage) (subject, body string) {
	subject = contactSubjects[msg.Subject]
	if subject == "" {
		subject = msg.Subject
	}
	subject = "[Contacto] " + subject
	text := strings.ReplaceAll(htmlEscape(msg.Message), "\n", "<br/>")
	body = fmt.Sprintf(
		"<h3>Nuevo mensaje de contacto</h3>"+
			"<p><strong>Nombre:</strong> %s</p>"+
			"<p><strong>Email:</strong> %s</p>"+
			"<p><strong>Mensaje:</strong><br/>%s</p>"+
			"<hr/><p style=\"font-size:12px;color:#666\">IP: %s | User-Agent: %s</p>",
		htmlEscape(msg.Name), htmlEscape(msg.Email), text, htmlEscape(msg.IP), htmlEscape(msg.UserAgent))
	return subject, body
}

func htmlEscape(s string) string {
	return html.EscapeString(s)
}
