// Package scene connects the capture pipeline to an external renderer through
// the filesystem.
//
// The renderer writes each finished frame into a directory; [FrameSource]
// watches that directory with fsnotify and hands the newest frame matching a
// glob pattern to the orchestrator. [Overlay] publishes the overlay visibility
// the renderer should honour, and [Static] describes a fixed camera and
// viewport loaded from the steps file.
package scene
