// ssd-detect runs a single image through an exported SSD model and
// prints the resulting detections.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-ssd/detect"
	"github.com/nvr-ai/go-ssd/nms"
	"github.com/nvr-ai/go-ssd/prior"
)

func main() {
	var (
		modelPath  = flag.String("model", "ssd300.onnx", "Path to the ONNX model")
		libPath    = flag.String("ort", "libonnxruntime.so", "Path to the onnxruntime shared library")
		priorsPath = flag.String("priors", "priors.txt", "Prior boxes, one 'cx cy w h' line per prior")
		imagePath  = flag.String("image", "", "Image to run detection on")
		numClasses = flag.Int("classes", 21, "Number of classes including background")
		inputSize  = flag.Int("size", 300, "Model input width and height")
		scoreThr   = flag.Float64("score", 0.01, "Minimum class score")
		nmsThr     = flag.Float64("nms", 0.45, "Suppression overlap threshold")
		topK       = flag.Int("topk", 200, "Per-class suppression candidate cap")
		keepTopK   = flag.Int("keep", 200, "Global detection cap")
		method     = flag.String("method", "greedy", "Suppression policy: greedy, opencv or diou")
	)
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("no input image (-image)")
	}

	priors, err := loadPriors(*priorsPath)
	if err != nil {
		log.Fatalf("loading priors: %v", err)
	}

	img, err := loadImage(*imagePath)
	if err != nil {
		log.Fatalf("loading image: %v", err)
	}

	session, err := detect.NewSession(detect.SessionConfig{
		ModelPath:      *modelPath,
		LibraryPath:    *libPath,
		InputName:      "input",
		LocOutputName:  "loc",
		ConfOutputName: "conf",
		InputWidth:     *inputSize,
		InputHeight:    *inputSize,
		Mean:           [3]float32{123, 117, 104},
		Detect: detect.Config{
			NumClasses:     *numClasses,
			ScoreThreshold: float32(*scoreThr),
			NMSThreshold:   float32(*nmsThr),
			TopK:           *topK,
			KeepTopK:       *keepTopK,
			Method:         parseMethod(*method),
			Variances:      prior.Variances{Center: 0.1, Size: 0.2},
		},
	}, priors)
	if err != nil {
		log.Fatalf("creating session: %v", err)
	}
	defer session.Close()

	detections, err := session.Detect(img)
	if err != nil {
		log.Fatalf("detecting: %v", err)
	}

	bounds := img.Bounds()
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	for _, d := range detections {
		fmt.Printf("class=%d score=%.3f box=(%.1f, %.1f)-(%.1f, %.1f)\n",
			d.Class, d.Score, d.Box[0]*w, d.Box[1]*h, d.Box[2]*w, d.Box[3]*h)
	}
}

func parseMethod(name string) nms.Method {
	switch strings.ToLower(name) {
	case "opencv":
		return nms.OpenCV
	case "diou":
		return nms.DIoU
	default:
		return nms.Greedy
	}
}

// loadPriors reads one center-form prior per line: "cx cy w h".
func loadPriors(path string) (*prior.Priors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var centers []float32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("expected 4 fields per prior, got %q", line)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, err
			}
			centers = append(centers, float32(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return prior.New(centers)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
