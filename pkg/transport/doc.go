// Package transport provides the websocket transport adapter for the
// HTP-1 control connection.
//
// The client consumes transport through two narrow interfaces, Dialer
// and Conn: open a websocket to a URL, send text frames, receive frames,
// detect close. The production implementation (WSDialer/WSConn) is built
// on gorilla/websocket; tests substitute in-memory fakes.
//
// Connection loss is not an error at this layer. Read failures and
// close frames both surface as a FrameClose frame, which the client's
// receive loop turns into a reconnect.
package transport
