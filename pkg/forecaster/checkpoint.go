package forecaster

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/gitpulse-dev/gitpulse/pkg/fusion"
)

// Manifest describes a trained checkpoint on disk. GitPulse never embeds
// trained weights in the binary; a manifest file (model.toml) records
// enough metadata to reconstruct a Model and to
// report the reference implementation's held-out evaluation numbers
// (§4.10) alongside whatever forecast it produces.
//
// Per §4.10, the fusion gate (pkg/fusion) is trained jointly with this
// forecasting head, so its seed and clamp bounds travel in the same
// checkpoint rather than a separate one.
type Manifest struct {
	Version               string  `toml:"version"`
	Seed                  int64   `toml:"seed"`
	D                     int     `toml:"d"`
	DPrime                int     `toml:"d_prime"`
	MaxHorizonMonths      int     `toml:"max_horizon_months"`
	HeldOutMSE            float64 `toml:"held_out_mse"`
	HeldOutR2             float64 `toml:"held_out_r2"`
	HeldOutDirectionalAcc float64 `toml:"held_out_directional_accuracy"`

	FusionSeed int64   `toml:"fusion_seed"`
	FusionWMin float64 `toml:"fusion_w_min"`
	FusionWMax float64 `toml:"fusion_w_max"`
}

// LoadManifest reads a checkpoint manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("forecaster: load manifest %s: %w", path, err)
	}
	return &m, nil
}

// Load reconstructs a Model from a manifest. Because GitPulse's encoders
// and forecasting head are all deterministically seeded rather than
// serialized weight-by-weight, a checkpoint is fully described by its
// manifest: the same seed and dimensions always reproduce the same
// weights.
func Load(m *Manifest) *Model {
	return New(m.Seed, m.D, m.DPrime, m.MaxHorizonMonths, m.Version)
}

// LoadFusionGate reconstructs the jointly-trained fusion gate described by
// the same manifest. A zero FusionWMin/FusionWMax falls back to §4.9's
// defaults, so older manifests predating the joint-checkpoint convention
// still load a usable gate.
func LoadFusionGate(m *Manifest, tsWidth, textWidth int) *fusion.Gate {
	wMin, wMax := m.FusionWMin, m.FusionWMax
	if wMin == 0 && wMax == 0 {
		wMin, wMax = fusion.DefaultWMin, fusion.DefaultWMax
	}
	return fusion.New(m.FusionSeed, tsWidth, textWidth, wMin, wMax)
}
