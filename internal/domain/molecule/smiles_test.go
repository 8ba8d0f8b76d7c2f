package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSMILES_Formulas(t *testing.T) {
	cases := []struct {
		smiles  string
		formula string
		atoms   int
		bonds   int
	}{
		{"C", "CH4", 1, 0},
		{"CCO", "C2H6O", 3, 2},
		{"c1ccccc1", "C6H6", 6, 6},
		{"C1=CC=CC=C1", "C6H6", 6, 6},
		{"CC(=O)Oc1ccccc1C(=O)O", "C9H8O4", 13, 13},
		{"c1ccncc1", "C5H5N", 6, 6},
		{"c1cc[nH]c1", "C4H5N", 5, 5},
		{"C#N", "CHN", 2, 1},
		{"ClC(Cl)Cl", "CHCl3", 4, 3},
		{"[NH4+].[Cl-]", "ClH4N", 2, 0},
		{"C[C@@H](N)C(=O)O", "C3H7NO2", 6, 5},
		{"[13CH4]", "CH4", 1, 0},
		{"C%10CCCCC%10", "C6H12", 6, 6},
		{"CS(=O)(=O)C", "C2H6O2S", 5, 4},
		{"F/C=C/F", "C2H2F2", 4, 3},
	}
	for _, tc := range cases {
		t.Run(tc.smiles, func(t *testing.T) {
			m, err := ParseSMILES(tc.smiles)
			require.NoError(t, err)
			assert.Equal(t, tc.formula, m.Formula())
			assert.Len(t, m.Atoms, tc.atoms)
			assert.Len(t, m.Bonds, tc.bonds)
		})
	}
}

func TestParseSMILES_BondOrders(t *testing.T) {
	m, err := ParseSMILES("C=CC#N")
	require.NoError(t, err)
	require.Len(t, m.Bonds, 3)
	assert.Equal(t, BondDouble, m.Bonds[0].Order)
	assert.Equal(t, BondSingle, m.Bonds[1].Order)
	assert.Equal(t, BondTriple, m.Bonds[2].Order)

	m, err = ParseSMILES("c1ccccc1")
	require.NoError(t, err)
	for _, b := range m.Bonds {
		assert.Equal(t, BondAromatic, b.Order)
	}
}

func TestParseSMILES_Charges(t *testing.T) {
	m, err := ParseSMILES("[Fe+2].[O-]C(=O)C")
	require.NoError(t, err)
	assert.Equal(t, "Fe", m.Atoms[0].Element)
	assert.Equal(t, 2, m.Atoms[0].Charge)
	assert.Equal(t, -1, m.Atoms[1].Charge)

	m, err = ParseSMILES("[N++]")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Atoms[0].Charge)
}

func TestParseSMILES_Errors(t *testing.T) {
	for _, bad := range []string{
		"C1CC",      // unclosed ring
		"(C)",       // branch without atom
		"C==C",      // double bond symbol
		"C=",        // dangling bond
		"CX",        // unknown organic atom
		"[Xx]",      // unknown element
		"[]",        // empty bracket
		"C11",       // ring to self
		"c1ccccc1)", // stray close
	} {
		_, err := ParseSMILES(bad)
		assert.Error(t, err, bad)
	}
}
