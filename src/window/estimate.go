package window

import "github.com/elee1766/booktutor/src/aisdk"

// ImageTokens is the flat cost of one image part.
const ImageTokens = 170 * 4

// EstimateText approximates the token count of s at four bytes per token.
func EstimateText(s string) int {
	return (len(s) + 2) / 4
}

// EstimateMessage approximates the token count of a message.
func EstimateMessage(msg *aisdk.Message) int {
	if msg == nil {
		return 0
	}
	n := EstimateText(msg.Content) + EstimateText(msg.Refusal)
	for _, part := range msg.Parts {
		switch part.Type {
		case aisdk.ContentTypeImageURL:
			n += ImageTokens
		default:
			n += EstimateText(part.Text)
		}
	}
	for _, call := range msg.ToolCalls {
		n += EstimateText(call.Function.Name) + EstimateText(call.Function.Arguments)
	}
	return n
}
