// Package events defines the typed event contract emitted by the engine.
//
// Event kinds are grouped by namespace:
//
//   - connection.*
//   - turn.*
//   - session.*
//   - transcript.*
//   - audio.*
//   - caption.*
//   - alert.*
//
// connection events
//
//   - ConnectionStateChanged (connection.state_changed): the connection
//     manager moved to a new lifecycle state.
//   - Connected (connection.connected): handshake acknowledged; Resumed is
//     set when this followed an unexpected drop, signalling dependents to
//     request session resynchronization.
//   - Disconnected (connection.disconnected): socket closed; Deliberate
//     distinguishes an explicit disconnect from a drop.
//   - ConnectionFailed (connection.failed): terminal failure, either an auth
//     rejection or an exhausted reconnection budget.
//   - ProtocolViolation (connection.protocol_error): a malformed textual
//     frame was skipped; the connection stays alive.
//
// turn events
//
//   - TurnStarted (turn.started): a turn opened for the given owner.
//   - TurnEnded (turn.ended): the owner's open turn closed.
//
// session events
//
//   - SessionReplaced (session.replaced): the current session was replaced
//     wholesale (history load or server-signalled change). Always a single
//     notification, never partial states.
//   - SessionUpdated (session.updated): the current session mutated
//     incrementally.
//
// transcript events
//
//   - TranscriptItemAppended (transcript.item_appended): a new chat item was
//     appended at the given index.
//   - TranscriptItemUpdated (transcript.item_updated): the trailing streaming
//     message mutated in place.
//   - TranscriptReset (transcript.reset): the item sequence was rebuilt from
//     a history snapshot.
//
// audio events
//
//   - CaptureStarted (audio.capture_started), CaptureStopped
//     (audio.capture_stopped): capture lifecycle; CaptureStopped carries the
//     error when the stop was caused by a device failure.
//   - InputLevel (audio.input_level), OutputLevel (audio.output_level):
//     instantaneous level of the most recent frame in each direction.
//
// caption events
//
//   - CaptionInterim (caption.interim): revisable partial caption of the
//     user's outbound audio.
//   - CaptionFinal (caption.final): finalized caption, one per utterance.
//
// alert events
//
//   - SystemAlert (alert.system): human-readable condition with severity.
package events
