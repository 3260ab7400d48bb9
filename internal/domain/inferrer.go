package domain

import "context"

// Inferrer is the boundary to the external vision-inference service: one
// prompt, one embedded PNG image, free text back. The reply is expected to
// contain, but is not guaranteed to contain, a single JSON value; all
// extraction and validation of that value happens on the caller's side.
// Implementations must honor the context deadline.
type Inferrer interface {
	Infer(ctx context.Context, prompt string, imagePNG []byte) (string, error)
}
