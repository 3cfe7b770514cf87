package firm_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/stretchr/testify/require"
)

type stubISA struct {
	params firm.Params
}

func (s *stubISA) Init(p firm.Params) error                { s.params = p; return nil }
func (s *stubISA) Finish()                                  {}
func (s *stubISA) GetParams() firm.Params                   { return s.params }
func (s *stubISA) LowerForTarget(g *irgraph.Graph) error     { return nil }
func (s *stubISA) GenerateCode(g *irgraph.Graph) ([]byte, error) {
	return []byte("stub"), nil
}
func (s *stubISA) IsValidClobber(regName string) bool { return regName == "r0" }
func (s *stubISA) GetOpEstimatedCost(op irgraph.Opcode) int { return 1 }

func TestRegisterAndLookupTarget(t *testing.T) {
	require := require.New(t)
	isa := &stubISA{}
	name := "stub-target-register-lookup"

	require.NoError(firm.RegisterTarget(name, isa))
	got, err := firm.LookupTarget(name)
	require.NoError(err)
	require.Same(isa, got)

	require.ErrorIs(firm.RegisterTarget(name, isa), firm.ErrTargetAlreadyRegistered)
	require.ErrorIs(firm.RegisterTarget("", isa), firm.ErrEmptyTargetName)
}

func TestLookupUnknownTarget(t *testing.T) {
	require := require.New(t)
	_, err := firm.LookupTarget("does-not-exist")
	require.ErrorIs(err, firm.ErrUnknownTarget)
}

func TestTargetNamesSorted(t *testing.T) {
	require := require.New(t)
	require.NoError(firm.RegisterTarget("zzz-target-names-b", &stubISA{}))
	require.NoError(firm.RegisterTarget("aaa-target-names-a", &stubISA{}))

	names := firm.TargetNames()
	idxA, idxB := -1, -1
	for i, n := range names {
		switch n {
		case "aaa-target-names-a":
			idxA = i
		case "zzz-target-names-b":
			idxB = i
		}
	}
	require.GreaterOrEqual(idxA, 0)
	require.GreaterOrEqual(idxB, 0)
	require.Less(idxA, idxB)
}
