package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
)

// urgencyRubric is shared between the drafting and scoring prompts.
const urgencyRubric = `score the urgency or severity of this email on a scale from 0 to 100:
- 0-25: Low urgency, can be addressed at convenience
- 26-50: Moderate urgency, should be addressed within a few days
- 51-75: High urgency, should be addressed soon
- 76-100: Critical urgency, requires immediate attention

Factor in elements like:
- Tone (is it demanding, desperate, casual?)
- Content (what is being requested or reported?)
- Sender's position (are they a key stakeholder?)
- Time-sensitive language (deadlines, ASAP mentions)
- Impact of the issue (how serious would the consequences be if not addressed?)`

// draftingPrompt builds the system prompt for generating a reply draft.
func (c *Client) draftingPrompt(
	knowledge string,
	msg *model.EmailMessage,
	info *model.StoreInfo,
) string {
	var sb strings.Builder

	sb.WriteString("You are an email assistant responsible for drafting responses to incoming emails.\n")
	sb.WriteString("Use the knowledge base provided below to inform your responses.\n\n")

	sb.WriteString("KNOWLEDGE BASE:\n")
	sb.WriteString(knowledge)
	sb.WriteString("\n\n")

	if info != nil {
		sb.WriteString("SENDER'S STORE:\n")
		fmt.Fprintf(&sb, "Name: %s\n", info.Name)
		fmt.Fprintf(&sb, "Domain: %s\n", info.Domain)
		fmt.Fprintf(&sb, "Sync mode: %s\n", info.SyncMode)
		fmt.Fprintf(&sb, "Currency: %s\n", info.Currency)
		fmt.Fprintf(&sb, "Company: %s\n", info.CompanyName)
		fmt.Fprintf(&sb, "Account email: %s\n", info.Email)
		sb.WriteString("\n")
	}

	sb.WriteString("INCOMING EMAIL:\n")
	writeMessage(&sb, msg)
	sb.WriteString("\n")

	sb.WriteString("Draft a response to this email using the information from the knowledge base.\n\n")
	sb.WriteString("Your draft email will be reviewed by a human before being sent, so you can leave placeholders in the response for the agent to fill in.\n")
	sb.WriteString("Draft as much of the email as possible.\n")
	sb.WriteString("If you're unsure about the answer, you can even leave questions for the agent so that the knowledge base can be updated to help you in the future.\n\n")

	sb.WriteString("In addition to drafting a response, you must ")
	sb.WriteString(urgencyRubric)
	sb.WriteString("\n\n")
	sb.WriteString("Include this score at the END of your response in the format: [URGENCY_SCORE: X] where X is a number from 0-100.\n\n")

	sb.WriteString("Make sure your response:\n")
	sb.WriteString("1. Addresses the sender's questions or concerns directly\n")
	sb.WriteString("2. Is formatted as plain text, ready to be sent as an email\n")
	sb.WriteString("3. DO NOT include the email subject in your response - it will be automatically shown in the email thread\n")
	if c.signature != "" {
		fmt.Fprintf(&sb, "4. ALWAYS sign the email as %q - do not use any other closing or signature\n", c.signature)
	} else {
		sb.WriteString("4. Does not include a closing signature - one is appended automatically\n")
	}
	sb.WriteString("5. Don't say anything that you're unsure about - leave placeholders for the agent to fill in. It's worse to be too verbose than too short.\n")
	sb.WriteString("6. Always be improving. Leave notes for the agent to update the knowledge base to help you in the future.\n")
	sb.WriteString("7. End with the urgency score in the specified format\n\n")

	sb.WriteString("YOUR RESPONSE:")

	return sb.String()
}

// scoringPrompt builds the score-only prompt for a sender group. Every
// message from the sender is included, newest first.
func (c *Client) scoringPrompt(knowledge string, group model.SenderGroup) string {
	var sb strings.Builder

	sb.WriteString("You are an email assistant responsible for evaluating the urgency of incoming emails.\n")
	sb.WriteString("Use the knowledge base provided below to inform your evaluations.\n\n")

	sb.WriteString("KNOWLEDGE BASE:\n")
	sb.WriteString(knowledge)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Today's date: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	fmt.Fprintf(&sb, "INCOMING EMAILS FROM %s (%d message(s), newest first):\n\n",
		group.Address, len(group.Messages))
	for i := range group.Messages {
		writeMessage(&sb, &group.Messages[i])
		sb.WriteString("\n")
	}

	sb.WriteString("Your task is to ")
	sb.WriteString(urgencyRubric)
	sb.WriteString("\n\n")
	sb.WriteString("Respond ONLY with the score in this exact format: [URGENCY_SCORE: X] where X is a number from 0-100.\n")

	return sb.String()
}

// writeMessage renders one message's header and body into a prompt.
func writeMessage(sb *strings.Builder, msg *model.EmailMessage) {
	if msg.From.Name != "" {
		fmt.Fprintf(sb, "From: %s <%s>\n", msg.From.Name, msg.From.Address)
	} else {
		fmt.Fprintf(sb, "From: <%s>\n", msg.From.Address)
	}
	fmt.Fprintf(sb, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(sb, "Date: %s\n", msg.Date.UTC().Format(time.RFC3339))
	fmt.Fprintf(sb, "Body:\n%s\n", msg.TextBody)
}
