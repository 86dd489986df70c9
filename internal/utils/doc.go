// Package utils holds the low-level helpers shared by the provider drivers:
// JSON POST round trips ([DoPostSync]), streaming POSTs ([DoPostStream]) read
// through an [SSEScanner] or [LineScanner], the construct-once
// [InstanceCache], and HTML to Markdown conversion.
package utils
