package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

const benzeneMol = `benzene
  ChemXGen

  6  6  0  0  0  0  0  0  0  0999 V2000
    1.2990    0.7500    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    1.5000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
   -1.2990    0.7500    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
   -1.2990   -0.7500    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000   -1.5000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.2990   -0.7500    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  2  0
  2  3  1  0
  3  4  2  0
  4  5  1  0
  5  6  2  0
  6  1  1  0
M  END
`

func TestClean(t *testing.T) {
	cases := map[string]string{
		"```json\nCCO\n```": "CCO",
		`"c1ccccc1"`:        "c1ccccc1",
		`'CCN'`:             "CCN",
		"  CO  ":            "CO",
		`"CC'`:              "CC",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), "input %q", in)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("\n  RDKit\n\n  0  0  0  0  0  0  0  0  0  0999 V2000\nM  END"))
	assert.False(t, IsEmpty("C"))
	assert.False(t, IsEmpty(benzeneMol))
}

func TestSniff(t *testing.T) {
	assert.Equal(t, FormatSMILES, Sniff("c1ccccc1"))
	assert.Equal(t, FormatMolfile, Sniff(benzeneMol))
	assert.Equal(t, FormatMolfile, Sniff("x\nM  END"))
	assert.Equal(t, FormatMolfile, Sniff("a\nb\nc\nd\ne\nf"))
	assert.Equal(t, FormatSMILES, Sniff("a\nb\nc"))
}

func TestParseAny(t *testing.T) {
	m, f, err := ParseAny("```json\n\"CC(=O)O\"\n```")
	require.NoError(t, err)
	assert.Equal(t, FormatSMILES, f)
	assert.Equal(t, "C2H4O2", m.Formula())

	m, f, err = ParseAny(benzeneMol)
	require.NoError(t, err)
	assert.Equal(t, FormatMolfile, f)
	assert.Equal(t, "C6H6", m.Formula())

	_, _, err = ParseAny("   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderEmpty))

	_, _, err = ParseAny("this is not a molecule")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderInvalid))
}

func TestParseAny_FallsBackToOtherFormat(t *testing.T) {
	// Five lines without a V2000 tag sniff as SMILES and must fall back.
	short := "water\nhand\n\n  1  0  0  0  0  0  0  0  0  0999\n    0.0000    0.0000    0.0000 O   0  0"
	m, f, err := ParseAny(short)
	require.NoError(t, err)
	assert.Equal(t, FormatMolfile, f)
	assert.Equal(t, "H2O", m.Formula())
}

func TestValidateSMILES(t *testing.T) {
	assert.NoError(t, ValidateSMILES("C1=CC=CC=C1"))
	assert.NoError(t, ValidateSMILES("[NH4+].[Cl-]"))
	for _, bad := range []string{"", "C C", "C(C", "C)C", "[C(]", "CC!"} {
		err := ValidateSMILES(bad)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeFormat), bad)
	}
}

func TestWeight(t *testing.T) {
	m, err := ParseSMILES("OCC")
	require.NoError(t, err)
	assert.InDelta(t, 46.07, m.Weight(), 0.01)
	assert.Equal(t, 3, m.HeavyAtomCount())
}
