// Package vision holds the pure-Go image primitives used by the visual
// search strategies: grayscale conversion, thresholding, local contrast
// equalisation, morphology, colour isolation, edge detection, template
// matching and debug annotation.
//
// All filters operate on *image.Gray with the origin at (0,0); callers crop
// a region first and translate coordinates back themselves.
package vision
