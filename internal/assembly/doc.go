// Package assembly tracks progress through an ordered list of assembly steps.
//
// A [Sequencer] owns the immutable step list and a cursor in [0, N], where N
// is the Complete state. Rendering of the expected part is delegated to a
// [Presenter]: the current step is shown as a ghost, confirmed steps as solid.
//
// Steps are loaded from a YAML file with [LoadFile]:
//
//	steps:
//	  - name: Base bolt
//	    class: bolt
//	    bounds:
//	      - min: [-0.05, 0, -0.55]
//	        max: [0.05, 0.1, -0.45]
//	camera:
//	  position: [0, 0.4, 0]
//	  target: [0, 0, -0.5]
//	  fov: 60
//	screen:
//	  width: 1920
//	  height: 1080
package assembly
