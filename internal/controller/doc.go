// Package controller implements the conversation mode machine.
//
// # Overview
//
// The controller owns everything scoped to one page lifetime: the
// transcript, the active mode, the form drafts, and the pending flag.
// Mode transitions happen in exactly three situations:
//
//   - a server-declared intent on a chat response (lead, support, other)
//   - an explicit user action (confirm/decline the lead gate, the
//     Support button, reset)
//   - a submission outcome (success closes the form, failure keeps it)
//
// # Modes
//
//	Idle -> AwaitingLeadConfirmation -> LeadFormOpen -> LeadSubmitted
//	Idle -> SupportFormOpen -> SupportSubmitted
//
// Lead and support modes are mutually exclusive. No mode is terminal: a
// new chat message or a reset always re-enters Idle.
//
// # History and staleness
//
// The history load runs on its own goroutine, tagged with the session id
// it was issued for. If the session rotates before the response arrives,
// the result is discarded, never applied. The same guard protects a chat
// response that outlives a reset.
package controller
