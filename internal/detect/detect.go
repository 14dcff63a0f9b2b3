// Package detect runs an anchor-based ONNX detector and emits
// trackcore.Regions. Detection is explicitly out of scope for the tracker
// core (spec.md §1: "produces the region set each frame"); this package is
// the concrete external collaborator that produces that region set,
// published upstream of the tracker via cmd/detector.
//
// Adapted from the teacher's vision.Detector (RetinaFace det_10g): the
// anchor decode and NMS math are kept verbatim, generalized from a
// hardcoded "face" detector to any single-class anchor-based detector by
// taking its ObjectType label as a construction parameter.
package detect

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/vistrackd/internal/trackcore"
)

// detMean/detStd are the RGB normalization constants det_10g was trained
// with (teacher's preprocessForDetection), kept regardless of object type.
var (
	detMean = [3]float32{127.5, 127.5, 127.5}
	detStd  = [3]float32{128.0, 128.0, 128.0}
)

// Preprocess resizes img to targetW×targetH and converts it to CHW float32,
// normalized the way det_10g expects. Callers pass d.InputSize() as the
// target dimensions.
func Preprocess(img image.Image, targetW, targetH int) []float32 {
	data := make([]float32, 3*targetH*targetW)
	planeSize := targetH * targetW

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	minX := bounds.Min.X
	minY := bounds.Min.Y

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < targetH; y++ {
			srcY := minY + y*srcH/targetH
			for x := 0; x < targetW; x++ {
				srcX := minX + x*srcW/targetW
				off := src.PixOffset(srcX, srcY)
				pix := src.Pix[off : off+3 : off+3]
				idx := y*targetW + x
				data[idx] = (float32(pix[0]) - detMean[0]) / detStd[0]
				data[planeSize+idx] = (float32(pix[1]) - detMean[1]) / detStd[1]
				data[2*planeSize+idx] = (float32(pix[2]) - detMean[2]) / detStd[2]
			}
		}
	case *image.YCbCr:
		for y := 0; y < targetH; y++ {
			srcY := minY + y*srcH/targetH
			for x := 0; x < targetW; x++ {
				srcX := minX + x*srcW/targetW
				yi := src.YOffset(srcX, srcY)
				ci := src.COffset(srcX, srcY)
				r8, g8, b8 := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				idx := y*targetW + x
				data[idx] = (float32(r8) - detMean[0]) / detStd[0]
				data[planeSize+idx] = (float32(g8) - detMean[1]) / detStd[1]
				data[2*planeSize+idx] = (float32(b8) - detMean[2]) / detStd[2]
			}
		}
	default:
		for y := 0; y < targetH; y++ {
			srcY := minY + y*srcH/targetH
			for x := 0; x < targetW; x++ {
				srcX := minX + x*srcW/targetW
				r, g, b, _ := img.At(srcX, srcY).RGBA()
				idx := y*targetW + x
				data[idx] = (float32(r>>8) - detMean[0]) / detStd[0]
				data[planeSize+idx] = (float32(g>>8) - detMean[1]) / detStd[1]
				data[2*planeSize+idx] = (float32(b>>8) - detMean[2]) / detStd[2]
			}
		}
	}

	return data
}

var strides = []int{8, 16, 32}

const anchorsPerStride = 2

// Detector runs an anchor-based single-class ONNX region detector.
type Detector struct {
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
	threshold     float32
	inputW        int
	inputH        int
	objectType    trackcore.ObjectType
}

// NewDetector loads an anchor-based ONNX model at modelPath, labeling every
// emitted Region with objectType.
func NewDetector(modelPath string, objectType trackcore.ObjectType, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	inputW, inputH := 640, 640

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	type outputSpec struct {
		name  string
		shape ort.Shape
	}
	outputs := []outputSpec{
		{"448", ort.NewShape(12800, 1)},
		{"471", ort.NewShape(3200, 1)},
		{"494", ort.NewShape(800, 1)},
		{"451", ort.NewShape(12800, 4)},
		{"474", ort.NewShape(3200, 4)},
		{"497", ort.NewShape(800, 4)},
		{"454", ort.NewShape(12800, 10)},
		{"477", ort.NewShape(3200, 10)},
		{"500", ort.NewShape(800, 10)},
	}

	outputNames := make([]string, len(outputs))
	outputTensors := make([]*ort.Tensor[float32], len(outputs))
	outputValues := make([]ort.Value, len(outputs))

	for i, spec := range outputs {
		outputNames[i] = spec.name
		t, err := ort.NewEmptyTensor[float32](spec.shape)
		if err != nil {
			for j := 0; j < i; j++ {
				outputTensors[j].Destroy()
			}
			inputTensor.Destroy()
			return nil, fmt.Errorf("create output tensor %d (%s): %w", i, spec.name, err)
		}
		outputTensors[i] = t
		outputValues[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		outputNames,
		[]ort.Value{inputTensor},
		outputValues,
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:       session,
		inputTensor:   inputTensor,
		outputTensors: outputTensors,
		threshold:     threshold,
		inputW:        inputW,
		inputH:        inputH,
		objectType:    objectType,
	}, nil
}

// Detect runs detection on a preprocessed CHW image and returns regions in
// original-image pixel coordinates.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]trackcore.Region, error) {
	inputSlice := d.inputTensor.GetData()
	copy(inputSlice, imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	regions := d.parseRegions(origW, origH)
	regions = nms(regions, 0.4)
	return regions, nil
}

func (d *Detector) parseRegions(origW, origH int) []trackcore.Region {
	var regions []trackcore.Region

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	for si, stride := range strides {
		scores := d.outputTensors[si].GetData()
		bboxes := d.outputTensors[si+3].GetData()

		fmW := d.inputW / stride
		fmH := d.inputH / stride

		idx := 0
		for cy := 0; cy < fmH; cy++ {
			for cx := 0; cx < fmW; cx++ {
				for a := 0; a < anchorsPerStride; a++ {
					score := scores[idx]
					if score >= d.threshold {
						anchorX := float32(cx) * float32(stride)
						anchorY := float32(cy) * float32(stride)
						st := float32(stride)

						x1 := clampF((anchorX-bboxes[idx*4+0]*st)*scaleW, 0, float32(origW))
						y1 := clampF((anchorY-bboxes[idx*4+1]*st)*scaleH, 0, float32(origH))
						x2 := clampF((anchorX+bboxes[idx*4+2]*st)*scaleW, 0, float32(origW))
						y2 := clampF((anchorY+bboxes[idx*4+3]*st)*scaleH, 0, float32(origH))

						w := float64(x2 - x1)
						h := float64(y2 - y1)
						regions = append(regions, trackcore.Region{
							BRect: trackcore.Rect{X: float64(x1), Y: float64(y1), W: w, H: h},
							RRect: trackcore.RotatedRect{CX: float64(x1) + w/2, CY: float64(y1) + h/2, W: w, H: h},
							Type:  d.objectType,
							Conf:  float64(score),
						})
					}
					idx++
				}
			}
		}
	}

	return regions
}

func (d *Detector) InputSize() (int, int) { return d.inputW, d.inputH }

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.outputTensors {
		if t != nil {
			t.Destroy()
		}
	}
}

func nms(regions []trackcore.Region, iouThreshold float64) []trackcore.Region {
	if len(regions) == 0 {
		return regions
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Conf > regions[j].Conf
	})

	keep := make([]bool, len(regions))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(regions); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(regions); j++ {
			if !keep[j] {
				continue
			}
			if regions[i].BRect.IoU(regions[j].BRect) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []trackcore.Region
	for i, r := range regions {
		if keep[i] {
			result = append(result, r)
		}
	}
	return result
}

func clampF(v, min, max float32) float32 {
	return float32(math.Max(float64(min), math.Min(float64(max), float64(v))))
}
