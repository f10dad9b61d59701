package safety

import (
	"fmt"

	"github.com/hyperjump/faqbot/internal/models"
)

// Contact holds the organization details substituted into canned replies.
type Contact struct {
	Organization    string // e.g. "IIT Gandhinagar Counselling Services"
	Institute       string // e.g. "IIT Gandhinagar"
	Email           string
	EmergencyNumber string
}

// Responses renders the fixed replies for short-circuited messages.
type Responses struct {
	crisis     string
	depression string
	greeting   string
	fallback   string
	noAnswer   string
}

// NewResponses renders all replies for contact once.
func NewResponses(c Contact) *Responses {
	ipod := "🧘 **IPOD Session - Inner Peace and Outer Dynamism**\n"
	return &Responses{
		crisis: fmt.Sprintf("If you are feeling unsafe or overwhelmed, please reach out immediately:\n\n"+
			"📞 Emergency Number: %s\n"+
			"🏥 %s Medical Center\n"+
			"💬 Contact a trusted person or local emergency services\n\n"+
			ipod+
			"Join us every Wednesday, 6:30-7:30 PM at the Multipurpose Hall for music, meditation, and connection. "+
			"It's a space for wellness, peace, and reconnection with yourself and others.\n\n"+
			"You are not alone. Help is available.",
			c.EmergencyNumber, c.Institute),
		depression: fmt.Sprintf("I'm here to help you. It sounds like you might be going through a difficult time. 💙\n\n"+
			"**Here are some resources that may help:**\n\n"+
			ipod+
			"📅 Every Wednesday, 6:30-7:30 PM\n"+
			"📍 Multipurpose Hall\n"+
			"Join us for music, meditation, and a supportive community. "+
			"It's a wonderful opportunity to reconnect with yourself and find some peace.\n\n"+
			"📧 **Counselling Services**: %s\n"+
			"📞 **Emergency Support**: %s\n"+
			"🏥 **%s Medical Center** is also available\n\n"+
			"Remember, reaching out is a sign of strength. You don't have to face this alone. "+
			"Would you like to know more about our counselling services?",
			c.Email, c.EmergencyNumber, c.Institute),
		greeting: fmt.Sprintf("Hello! I'm the virtual assistant for %s. How can I help you?", c.Organization),
		noAnswer: fmt.Sprintf("I don't have that information right now. "+
			"Please contact the counselling team at %s for accurate details.", c.Email),
		fallback: fmt.Sprintf("I don't have that information right now. "+
			"Please contact the counselling team at %s for accurate details. "+
			"Feel free to ask me anything else related to %s!", c.Email, c.Organization),
	}
}

// For returns the canned reply for a short-circuiting classification and false for ClassNone.
func (r *Responses) For(c models.Classification) (string, bool) {
	switch c {
	case models.ClassCrisis:
		return r.crisis, true
	case models.ClassDepression:
		return r.depression, true
	case models.ClassGreeting:
		return r.greeting, true
	case models.ClassMeta:
		return r.fallback, true
	default:
		return "", false
	}
}

// Fallback is the reply for meta-questions and for searches without a confident match.
func (r *Responses) Fallback() string {
	return r.fallback
}

// NoAnswer is the exact sentence the LLM is told to emit when the context lacks an answer.
func (r *Responses) NoAnswer() string {
	return r.noAnswer
}
