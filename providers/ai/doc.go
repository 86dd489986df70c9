// Package ai defines the provider-neutral model shared by every backend:
// [Message], [Options], [Response] and the streamed [ContentDelta].
//
// A backend plugs in through two interfaces. [ChatDriver] sends a
// conversation and returns either a complete [Response] or a lazy
// [DeltaStream]; [Formatter] maps messages to and from the backend's request
// and storage shapes. The set of backends is closed ([Provider]); the
// drivers subpackage holds the lookup table.
//
// Failed calls return a *[ProviderRequestError]. Streams skip payloads they
// cannot decode and report the count through the observer in the context.
package ai
