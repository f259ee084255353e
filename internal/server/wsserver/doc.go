// Package wsserver implements the WebSocket broadcast layer of OVE core.
//
// A Hub tracks every live socket together with the identity it registered:
// a space client (a display or controller view) or a section (an embedded
// application instance). Section lifecycle messages are filtered by the
// geometry they carry, application traffic by section id, and clock
// traffic is handled in place.
//
// Messages are relayed to peer instances with the forwardedBy list; an
// envelope that already names this instance is dropped.
package wsserver
