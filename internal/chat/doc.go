// Package chat implements Parley's group chats: membership with
// role-based authorisation, message history, and the service layer the
// API and websocket gate call into.
//
// The role model is a tagged enum, not a hierarchy. Every rule in the
// guard checks role identity exactly; there is no "at least admin"
// comparison anywhere. The load-bearing invariant is that a non-empty
// chat has exactly one OWNER: role changes go through a single
// transactional path that demotes the previous owner in the same
// statement batch as the promotion.
//
// Read-class denials never reveal whether a chat exists. A request
// against an absent chat and a request from a non-member both surface
// ErrNotMember.
package chat
