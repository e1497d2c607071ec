package nullifier

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

var _ ramp.Msg = (*UpdateConfigurationMsg)(nil)

// UpdateConfigurationMsg grants and revokes write capability by
// patching the configuration. Only fields set in the patch are applied.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

// Path returns the routing path for this message
func (*UpdateConfigurationMsg) Path() string {
	return "nullifier/update_configuration"
}

// Marshal serializes the message.
func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes the message.
func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

// Validate will skip any zero fields and validate the set ones
func (m *UpdateConfigurationMsg) Validate() error {
	var err error
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	if len(m.Patch.Owner) != 0 {
		err = errors.Append(err, errors.Wrap(m.Patch.Owner.Validate(), "owner"))
	}
	for _, w := range m.Patch.Writers {
		err = errors.Append(err, errors.Wrap(w.Validate(), "writer"))
	}
	return err
}
