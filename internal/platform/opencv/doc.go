// Package opencv implements platform.Matcher with gocv's normalised
// correlation template matching and registers OpenCV versions of the
// recognition preprocessing filters. It needs OpenCV 4 and is only
// compiled with the "gocv" build tag.
package opencv
