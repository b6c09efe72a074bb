package detect

import (
	"image"
	"log"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-ssd/box"
	"github.com/nvr-ai/go-ssd/prior"
)

// SessionConfig configures an ONNX runtime session for an exported SSD
// model with two heads: location offsets (1, P, 4) and class logits
// (1, P, C).
type SessionConfig struct {
	// ModelPath is the .onnx model file.
	ModelPath string
	// LibraryPath is the onnxruntime shared library.
	LibraryPath string
	// InputName, LocOutputName and ConfOutputName are the graph tensor
	// names.
	InputName      string
	LocOutputName  string
	ConfOutputName string
	// InputWidth and InputHeight are the fixed model input size.
	InputWidth  int
	InputHeight int
	// Mean is subtracted per channel (RGB) during preprocessing.
	Mean [3]float32
	// Detect holds the post-processing parameters.
	Detect Config
}

// Session owns the ONNX runtime state for one SSD model and the prior
// set it regresses against. Not safe for concurrent use; the input and
// output tensors are reused across runs.
type Session struct {
	cfg     SessionConfig
	priors  *prior.Priors
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	loc     *ort.Tensor[float32]
	conf    *ort.Tensor[float32]
}

// NewSession initializes the onnxruntime environment, allocates the
// fixed-shape tensors and loads the model.
func NewSession(cfg SessionConfig, priors *prior.Priors) (*Session, error) {
	ort.SetSharedLibraryPath(cfg.LibraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing onnxruntime environment")
	}

	p := priors.Len()
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputHeight), int64(cfg.InputWidth)))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	locOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(p), box.Stride))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "creating location output tensor")
	}
	confOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(p), int64(cfg.Detect.NumClasses)))
	if err != nil {
		input.Destroy()
		locOut.Destroy()
		return nil, errors.Wrap(err, "creating confidence output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		locOut.Destroy()
		confOut.Destroy()
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(4)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.LocOutputName, cfg.ConfOutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{locOut, confOut},
		options,
	)
	if err != nil {
		input.Destroy()
		locOut.Destroy()
		confOut.Destroy()
		return nil, errors.Wrap(err, "creating onnxruntime session")
	}

	log.Printf("SSD session ready: %s (%d priors, %d classes)", cfg.ModelPath, p, cfg.Detect.NumClasses)
	return &Session{
		cfg:     cfg,
		priors:  priors,
		session: session,
		input:   input,
		loc:     locOut,
		conf:    confOut,
	}, nil
}

// Detect runs one image through the model and post-processes the outputs.
// Box coordinates in the result are normalized to [0, 1]; scale by the
// original image size to get pixels.
func (s *Session) Detect(img image.Image) ([]Detection, error) {
	s.preprocess(img)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	scores, err := Softmax(s.conf.GetData(), s.cfg.Detect.NumClasses)
	if err != nil {
		return nil, err
	}
	return PostProcess(s.loc.GetData(), scores, s.priors, s.cfg.Detect)
}

// preprocess resizes the image to the model input and fills the input
// tensor in CHW order with mean-subtracted channel values.
func (s *Session) preprocess(img image.Image) {
	w, h := s.cfg.InputWidth, s.cfg.InputHeight
	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)

	data := s.input.GetData()
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*w + x
			data[i] = float32(r>>8) - s.cfg.Mean[0]
			data[plane+i] = float32(g>>8) - s.cfg.Mean[1]
			data[2*plane+i] = float32(b>>8) - s.cfg.Mean[2]
		}
	}
}

// Close releases the session and its tensors.
func (s *Session) Close() error {
	s.session.Destroy()
	s.input.Destroy()
	s.loc.Destroy()
	s.conf.Destroy()
	return nil
}
