package llm

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

const clientPersona = `
You are role-playing a CUSTOMER who contacts customer service with a complaint.
A human participant plays the service representative.

Rules:
- Stay in character as the customer. Never act as the representative.
- Write ONLY the customer's next message, one short paragraph.
- Do not prefix your message with a speaker label.
- Do not write what the representative says next.
`

const openingInstructions = `
Write the customer's FIRST message: the initial complaint.

Customer profile:
- Name: %s
- Industry: %s
- Complaint category: %s
- The customer is %s, %s and %s.
- Tone: %s
`

const replyInstructions = `
Continue the conversation as the customer.
- Tone: %s
- If the representative offers a concrete resolution you accept, end your
  message with the marker FINISH:999.
`

const infoCueSystem = `
You help a customer-service representative in the %s industry answer a
complaint. Suggest what the representative could say next.

Return ONLY a JSON array of 3 short suggestions (strings), no prose.
`

const infoGuideSystem = `
You help a customer-service representative in the %s industry resolve a
complaint. List the concrete troubleshooting steps the representative should
take to resolve it.

Return ONLY a JSON array of 3 to 4 short steps (strings), no prose.
`

const reframeSystem = `
You support a customer-service representative who is facing an upset customer.
First name the thought the representative might be having about the customer's
last message. Then offer a short reframe that helps the representative stay calm
and empathetic.

Return ONLY a JSON object: {"thought": "...", "reframe": "..."}
`

const shoesSystem = `
You support a customer-service representative who is facing an upset customer.
In 2 or 3 sentences, help the representative see the situation from the
customer's point of view. Speak to the representative directly.
`

func tone(civil bool) string {
	if civil {
		return "frustrated but polite"
	}
	return "angry, impatient and uncivil, but without slurs or threats"
}

func attr(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

// transcript renders the history as labelled lines.
func transcript(history []domain.Message) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case domain.RoleRepresentative:
			b.WriteString("Representative: ")
		default:
			b.WriteString("Customer: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// OpeningPrompt asks for the client's first complaint.
func OpeningPrompt(c domain.ClientProfile) domain.Prompt {
	system := clientPersona + fmt.Sprintf(openingInstructions,
		c.Name,
		c.Domain,
		c.Category,
		attr(c.Grateful, "grateful", "NOT grateful"),
		attr(c.Ranting, "ranting", "NOT ranting"),
		attr(c.Expressive, "expressive", "NOT expressive"),
		tone(c.Civil),
	)

	return domain.Prompt{
		System:      system,
		User:        "Category: " + c.Category + "\nComplaint:",
		Temperature: 0.7,
		MaxTokens:   256,
	}
}

// ReplyPrompt asks for the client's answer to the representative's message.
func ReplyPrompt(c domain.ClientProfile, history []domain.Message, repText string) domain.Prompt {
	system := clientPersona + fmt.Sprintf(replyInstructions, tone(c.Civil))

	var user strings.Builder
	user.WriteString("Conversation so far:\n")
	user.WriteString(transcript(history))
	user.WriteString("Representative: ")
	user.WriteString(repText)
	user.WriteString("\n\nCustomer's next message:")

	return domain.Prompt{
		System:      system,
		User:        user.String(),
		Temperature: 0.7,
		MaxTokens:   256,
	}
}

func assistantUser(history []domain.Message, clientText string) string {
	var user strings.Builder
	if len(history) > 0 {
		user.WriteString("Conversation so far:\n")
		user.WriteString(transcript(history))
		user.WriteString("\n")
	}
	user.WriteString("Customer's latest message:\n")
	user.WriteString(clientText)
	return user.String()
}

func InfoCuePrompt(industry string, history []domain.Message, clientText string) domain.Prompt {
	return domain.Prompt{
		System:      fmt.Sprintf(infoCueSystem, industry),
		User:        assistantUser(history, clientText),
		Temperature: 0.3,
		MaxTokens:   300,
	}
}

func InfoGuidePrompt(industry string, history []domain.Message, clientText string) domain.Prompt {
	return domain.Prompt{
		System:      fmt.Sprintf(infoGuideSystem, industry),
		User:        assistantUser(history, clientText),
		Temperature: 0.3,
		MaxTokens:   300,
	}
}

func ReframePrompt(history []domain.Message, clientText string) domain.Prompt {
	return domain.Prompt{
		System:      reframeSystem,
		User:        assistantUser(history, clientText),
		Temperature: 0.5,
		MaxTokens:   300,
	}
}

func ShoesPrompt(history []domain.Message, clientText string) domain.Prompt {
	return domain.Prompt{
		System:      shoesSystem,
		User:        assistantUser(history, clientText),
		Temperature: 0.5,
		MaxTokens:   200,
	}
}
