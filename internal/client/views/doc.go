// Package views binds live poll data and countdowns to a Renderer.
//
// A view is mounted for as long as it is on screen. Mounting starts the
// background work the view needs and Unmount stops all of it; nothing is
// rendered after Unmount returns. A mounted view also unmounts itself when
// the session stops being authenticated.
package views
