// Package tesseract implements platform.Recognizer with gosseract.
//
// It needs the tesseract and leptonica development libraries and is only
// compiled with the "ocr" build tag:
//
//	go build -tags ocr ./...
package tesseract
