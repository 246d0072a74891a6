// Package cfgfile reads and patches the display's settings file.
//
// The file is a flat list of "[section]" headers followed by "key : value"
// or "key=value" lines, optionally carrying a trailing "#" or ";" comment.
// It is parsed into typed line records (headers and everything else) that
// keep their original text and line ending, so any line the patcher does
// not touch is written back byte for byte.
//
// # Reading
//
// Read resolves each whitelisted key inside its own section only. Numeric
// keys are coerced to int, or to a json.Number for floats so that 7 reads
// back as 7.0, and fall back to the raw string when they do not parse. Keys that are missing are left out of the snapshot.
//
// # Writing
//
// Apply patches a fresh copy of the document:
//
//   - a missing section header is appended at the end of the file, after
//     a blank separator line
//   - an existing key has only its value span replaced, so the separator
//     style, spacing, trailing comment and line ending survive
//   - a missing key is inserted after the section's last non-blank line
//
// The result is written to a temporary file in the same directory, synced,
// and renamed over the target. The previous content is copied to
// "<path>.bak" first. After the rename the file is handed to the configured
// owner (or the previous owner when that user does not exist) and the
// previous permission bits are restored. Those last steps are reported as
// Outcome values and never fail the write.
//
// # Watching
//
// Watcher reports edits made by other processes, such as someone editing
// the file over SSH, so the daemon can log them.
package cfgfile
