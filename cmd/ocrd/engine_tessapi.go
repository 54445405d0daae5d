//go:build tessapi

package main

import _ "github.com/joseph-ayodele/pageocr/internal/ocr/tessapi"
