// Package recommend is the HTTP client for the external irrigation
// recommendation model.
//
// The model takes a 15-element feature vector (weather, soil, and crop
// measurements) and returns a recommended irrigation duration and water
// volume. The client validates vector length before sending and treats
// every failure identically so callers can degrade to fallback
// parameters without inspecting the cause.
package recommend
