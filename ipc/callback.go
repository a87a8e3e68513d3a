// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

// Callback is invoked exactly once per accepted submission, carrying the
// opaque user context supplied at submit time and the final verdict. It
// replaces the C firmware's `void (*)(void *, t_ipc_status)` function
// pointer plus `void *user_ctx` pair: a Go closure already captures its
// context, so callers who want the "fixed function, separate context"
// split can still get it by having Ctx carry the value and ignoring the
// closure environment, but most callers simply close over what they need.
type Callback func(ctx any, status Status)

// fire invokes cb if non-nil. Submissions with a nil callback (the
// responder side's re-submitted Response write) are legal and silently
// produce no callback invocation.
func fire(cb Callback, ctx any, status Status) {
	if cb != nil {
		cb(ctx, status)
	}
}
