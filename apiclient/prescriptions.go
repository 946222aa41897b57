package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/giygas/rxpad/prescription"
)

// Compile-time check to ensure Client implements the session backend
var _ prescription.Backend = (*Client)(nil)

const (
	prescriptionsPath = "/api/prescriptions"
	presetsPath       = "/api/presets"
	generatePath      = "/api/generate-prescription"
	analyzePath       = "/api/analyze-symptoms"
)

// ListPrescriptions returns every saved prescription
func (c *Client) ListPrescriptions(ctx context.Context) ([]prescription.Prescription, error) {
	var out []prescription.Prescription
	if err := c.do(ctx, "list_prescriptions", http.MethodGet, prescriptionsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePrescription saves a form
func (c *Client) CreatePrescription(ctx context.Context, form prescription.Form) (*prescription.Prescription, error) {
	var out prescription.Prescription
	if err := c.do(ctx, "create_prescription", http.MethodPost, prescriptionsPath, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePrescription removes a saved prescription
func (c *Client) DeletePrescription(ctx context.Context, id string) error {
	return c.do(ctx, "delete_prescription", http.MethodDelete, prescriptionsPath+"/"+url.PathEscape(id), nil, nil)
}

// ListPresets returns every preset
func (c *Client) ListPresets(ctx context.Context) ([]prescription.Preset, error) {
	var out []prescription.Preset
	if err := c.do(ctx, "list_presets", http.MethodGet, presetsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePreset saves a new preset
func (c *Client) CreatePreset(ctx context.Context, preset prescription.Preset) (*prescription.Preset, error) {
	var out prescription.Preset
	if err := c.do(ctx, "create_preset", http.MethodPost, presetsPath, preset, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreset replaces an existing preset
func (c *Client) UpdatePreset(ctx context.Context, preset prescription.Preset) (*prescription.Preset, error) {
	var out prescription.Preset
	if err := c.do(ctx, "update_preset", http.MethodPut, presetsPath+"/"+url.PathEscape(preset.ID), preset, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePreset removes a preset
func (c *Client) DeletePreset(ctx context.Context, id string) error {
	return c.do(ctx, "delete_preset", http.MethodDelete, presetsPath+"/"+url.PathEscape(id), nil, nil)
}

// generateResponse wraps the draft: {"success": true, "prescription": {...}}
type generateResponse struct {
	Success      bool                                `json:"success"`
	Prescription *prescription.GeneratedPrescription `json:"prescription"`
	Error        string                              `json:"error"`
}

// GeneratePrescription asks the backend for an AI drafted prescription
func (c *Client) GeneratePrescription(ctx context.Context, req prescription.GenerateRequest) (*prescription.GeneratedPrescription, error) {
	const op = "generate_prescription"
	var out generateResponse
	if err := c.do(ctx, op, http.MethodPost, generatePath, req, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Prescription == nil {
		msg := out.Error
		if msg == "" {
			msg = "draft generation failed"
		}
		return nil, newAPIError(op, http.StatusOK, msg, nil)
	}
	return out.Prescription, nil
}

// AnalyzeSymptoms returns the backend's free-form symptom analysis
func (c *Client) AnalyzeSymptoms(ctx context.Context, symptoms string) (map[string]any, error) {
	var out map[string]any
	body := map[string]string{"symptoms": symptoms}
	if err := c.do(ctx, "analyze_symptoms", http.MethodPost, analyzePath, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
