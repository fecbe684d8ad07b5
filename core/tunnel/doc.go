// Package tunnel runs the validation and retry loop that turns language model
// output into typed values.
//
// A Tunnel is built once per schema. Each Run calls a caller-supplied Runner
// up to MaxRetries+1 times. The runner builds its prompt with
// Helpers.InjectSchema and returns the raw model text; the tunnel extracts
// the embedded JSON, validates it and, when either step fails, hands the
// runner a corrective prompt on the next attempt that restates the output
// rules, explains the failure and echoes the rejected response.
//
//	t, err := tunnel.NewFor[Invoice](tunnel.WithMaxRetries(3))
//	if err != nil {
//	    return err
//	}
//	invoice, err := t.Run(ctx, tunnel.Prompt("Extract the invoice:\n"+text, llm.Complete))
//	if errors.Is(err, tunnel.ErrMaxRetriesExceeded) {
//	    // every attempt was rejected
//	}
//
// The tunnel does no I/O of its own. Concurrent runs on one Tunnel are
// independent.
package tunnel
