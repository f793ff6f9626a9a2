package client

import "context"

// VisionClient talks to a vision model server. TraceImage returns the SVG
// document contained in the model's answer.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	TraceImage(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
