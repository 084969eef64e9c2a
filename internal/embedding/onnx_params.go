package embedding

import "fmt"

func validateONNXParams(dimensions, maxTokens int) error {
	if dimensions <= 0 {
		return fmt.Errorf("onnx dimensions must be positive, got %d", dimensions)
	}
	if maxTokens < 2 {
		return fmt.Errorf("onnx max_tokens must be at least 2, got %d", maxTokens)
	}
	return nil
}
