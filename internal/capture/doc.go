// Package capture implements the webcam capture pipeline: validating camera
// sources against a domain allowlist, fetching or rendering snapshot images,
// classifying them into time slots, and persisting the results.
package capture
