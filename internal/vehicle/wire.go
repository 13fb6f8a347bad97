package vehicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// wireDetection is the JSON shape shared by detection files and the HTTP
// inference service: model-space corner coordinates as floats.
//
//	{"class_id": 2, "label": "car", "confidence": 0.91, "xyxy": [12.7, 40.2, 58.9, 130.0]}
type wireDetection struct {
	ClassID    int        `json:"class_id"`
	Label      string     `json:"label,omitempty"`
	Confidence float64    `json:"confidence"`
	XYXY       [4]float64 `json:"xyxy"`
}

func (w wireDetection) detection() Detection {
	return Detection{
		ClassID:    w.ClassID,
		Label:      w.Label,
		Confidence: w.Confidence,
		Box:        BoxFromCorners(w.XYXY[0], w.XYXY[1], w.XYXY[2], w.XYXY[3]),
	}
}

// ParseDetections decodes either a bare JSON array of detections or an
// object with a "detections" array.
func ParseDetections(data []byte) ([]Detection, error) {
	data = bytes.TrimSpace(data)
	var wire []wireDetection

	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("failed to decode detections: %w", err)
		}
	} else {
		var envelope struct {
			Detections []wireDetection `json:"detections"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode detections: %w", err)
		}
		wire = envelope.Detections
	}

	out := make([]Detection, len(wire))
	for i, w := range wire {
		out[i] = w.detection()
	}
	return out, nil
}

// LoadStatic reads a detection file and returns a Static detector serving
// its contents. It lets an offline run replay the output of an external
// model.
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Static{}, fmt.Errorf("failed to read detections file: %w", err)
	}
	dets, err := ParseDetections(data)
	if err != nil {
		return Static{}, err
	}
	return Static{Detections: dets}, nil
}
