package llm

import (
	"context"
	"fmt"
)

const extractContactPrompt = `Find the data protection or privacy contact email address in the following page text.
Look for addresses near terms like "data protection officer", "DPO", "privacy", "privacy@", "dpo@".
Respond with the email address only. If no such address exists, respond with exactly: none

Page text:
%s`

// ExtractContactEmail asks the model for a privacy contact address in page
// text. The raw answer is returned as-is; callers validate the format.
func (c *Client) ExtractContactEmail(ctx context.Context, pageText string) (string, error) {
	return c.Complete(ctx, fmt.Sprintf(extractContactPrompt, pageText))
}
