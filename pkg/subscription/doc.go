// Package subscription provides the subject-to-observer registry for
// confirmed state changes.
//
// A subject is either an absolute state path ("/volume",
// "/inputs/2/label") or the reserved lifecycle subject SubjectConnection,
// which fires on connect and disconnect rather than on a path change.
//
// Callbacks registered for a subject fire in insertion order, on the
// goroutine that calls Notify (the client's receive loop). A slow
// callback therefore delays later callbacks and the next frame read;
// that is the accepted backpressure point of the client.
package subscription
