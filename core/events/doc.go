// Package events defines the typed events the streaming orchestrator
// delivers to its caller.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - connection.*
//   - recording.*
//   - playback.*
//   - service.*
//   - diagnostics.*
//
// Events are delivered in the order the orchestrator produced them, on a
// single goroutine that is never the orchestrator's own, so handlers may call
// back into the orchestrator.
//
// session events
//
//   - StateChanged (session.state_changed): the orchestrator moved between
//     Uninitialized, Connecting, Idle, Recording and Playing.
//
// connection events
//
//   - ConnectionStateChanged (connection.state_changed): the transport changed
//     phase; carries the failure that caused it, if any.
//   - ConnectionFailed (connection.failed): activation failed or reconnection
//     gave up. The orchestrator is back in Uninitialized.
//
// recording events
//
//   - RecordingStarted (recording.started): the microphone is streaming.
//   - RecordingStopped (recording.stopped): capture ended; carries the reason
//     and the recording locator when one was written.
//   - AudioLevelUpdated (recording.level_updated): sampled input level.
//
// playback events
//
//   - PlaybackQueued (playback.queued): an audio response is waiting for
//     recording or an earlier response to finish.
//   - PlaybackStarted (playback.started): an audio response started playing.
//   - PlaybackEnded (playback.ended): the response finished or was cut off.
//
// service events
//
//   - AppointmentCreated (service.appointment_created)
//   - AvailabilityChecked (service.availability_checked)
//   - ServiceError (service.error): the service reported an error message.
//   - MessageReceived (service.message_received): any other action.
//
// diagnostics events
//
//   - Warning (diagnostics.warning): something was dropped but the session
//     continues, e.g. an undecodable message.
//   - Error (diagnostics.error): a device or protocol failure ended a
//     recording or playback.
package events
