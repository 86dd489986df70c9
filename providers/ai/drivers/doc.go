// Package drivers is the lookup table from provider name to chat driver
// constructor and formatter. It is the only place that knows every backend.
package drivers
