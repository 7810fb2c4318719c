package codec

import "github.com/bytedance/sonic"

var (
	sonicStd    = sonic.ConfigStd
	sonicNumber = sonic.Config{UseNumber: true}.Froze()
)

// Sonic is a codec backed by bytedance/sonic. It produces the same output as
// JSON for the same input.
type Sonic struct{}

func (Sonic) Name() string { return "sonic" }

func (Sonic) Marshal(v any) ([]byte, error) {
	data, err := sonicStd.Marshal(v)
	if err != nil {
		return nil, err
	}
	return omitNulls(data, sonicStd.Marshal, sonicNumber.Unmarshal)
}

func (Sonic) Unmarshal(data []byte, v any) error {
	return sonicStd.Unmarshal(data, v)
}
