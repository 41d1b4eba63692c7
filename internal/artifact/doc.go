// Package artifact persists fitted pipelines. A model directory holds the encoded model (model.json
// or model.cbor), the ordered feature list (model_features.json) and a manifest carrying the blake3
// digest of the model file (model_manifest.json).
package artifact
