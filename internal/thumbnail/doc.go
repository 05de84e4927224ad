// Package thumbnail extracts single frames from media files and writes
// them as image files. Frame decoding is delegated to ffmpeg piping PNG
// data to stdout; resizing and encoding of the final image use the
// imaging library, with webp decode support registered for image inputs.
package thumbnail
