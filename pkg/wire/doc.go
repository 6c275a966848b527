// Package wire implements the HTP-1 text-frame command codec.
//
// Every message on the control websocket is a single text frame of the
// form "<command> <json-payload>", with the payload optional. Four
// commands exist:
//
//	out  getmso               request the full state document
//	in   mso <json>           full state snapshot
//	in   msoupdate <json>     one {op,path,value} operation, or an array
//	out  changemso <json>     array of {op:"replace",path,value}
//
// Unknown inbound commands are ignored by the client for forward
// compatibility; this package only splits and joins frames, it does not
// decide what is known.
package wire
