package notion

import "context"

// NopSink discards appends. Used when no Notion token is configured.
type NopSink struct{}

func (NopSink) Append(context.Context, string, string) error { return nil }
