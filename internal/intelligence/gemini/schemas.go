package gemini

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func num(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func integer(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

func array(desc string, items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: items}
}

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

var synthesisPlanSchema = object(map[string]*genai.Schema{
	"target": str("The name of the target molecule."),
	"routes": array("A list of distinct synthesis routes.", object(map[string]*genai.Schema{
		"routeId":    str("A unique identifier for the route (e.g., Route A, Route B)."),
		"summary":    str("A brief summary of this specific route strategy."),
		"difficulty": num("Estimated difficulty score (0-100)."),
		"cost":       str("Estimated cost range (e.g., Low, Medium, High)."),
		"steps": array("The sequence of reaction steps for this route.", object(map[string]*genai.Schema{
			"step":           integer("The step number."),
			"description":    str("A description of this reaction step."),
			"reactants":      array("List of reactant names for this step.", str("")),
			"reagents":       str("Reagents, catalysts, and conditions for this step."),
			"product":        str("The name of the product from this step."),
			"product_smiles": str("The Canonical SMILES string for the product molecule structure."),
		}, "step", "description", "reactants", "reagents", "product", "product_smiles")),
	}, "routeId", "summary", "difficulty", "cost", "steps")),
}, "target", "routes")

var toxicityReportSchema = object(map[string]*genai.Schema{
	"moleculeName":      str("The identified name of the molecule being analyzed."),
	"summary":           str("A high-level summary of the toxicology profile."),
	"oralToxicity":      str("Predicted oral toxicity (e.g., LD50, toxicity class). Provide reasoning."),
	"dermalToxicity":    str("Predicted dermal toxicity and irritation potential."),
	"carcinogenicity":   str("Assessment of carcinogenic potential based on structural alerts and known data."),
	"mutagenicity":      str("Assessment of mutagenic potential (e.g., Ames test prediction)."),
	"safetyPrecautions": array("Recommended personal protective equipment and handling precautions.", str("")),
	"riskScore":         num("Overall safety score from 0 (Toxic) to 100 (Safe)."),
	"endpoints": array("", object(map[string]*genai.Schema{
		"name":  str(""),
		"pred":  str("'Active' or 'Inactive'"),
		"prob":  str("Probability e.g. '0.85'"),
		"alert": str("Risk level e.g. 'High Risk'"),
	})),
}, "moleculeName", "summary", "oralToxicity", "dermalToxicity", "carcinogenicity", "mutagenicity",
	"safetyPrecautions", "riskScore", "endpoints")

var propertyReportSchema = object(map[string]*genai.Schema{
	"molecularWeight":      str(""),
	"logP":                 num(""),
	"tpsa":                 num(""),
	"hBondDonors":          integer(""),
	"hBondAcceptors":       integer(""),
	"rotatableBonds":       integer(""),
	"bioavailabilityScore": num("0 to 1 score"),
	"solubility":           str("e.g. 'High', 'Moderate'"),
	"absorption": array("", object(map[string]*genai.Schema{
		"title":      str(""),
		"value":      str(""),
		"percentage": num(""),
	})),
	"radar": array("", object(map[string]*genai.Schema{
		"label": str(""),
		"value": num(""),
	})),
}, "molecularWeight", "logP", "tpsa", "hBondDonors", "hBondAcceptors", "rotatableBonds",
	"bioavailabilityScore", "solubility", "absorption", "radar")

var similarityReportSchema = object(map[string]*genai.Schema{
	"query":   str("The query molecule."),
	"summary": str("A short summary of the similarity landscape."),
	"hits": array("Similar compounds, most similar first.", object(map[string]*genai.Schema{
		"name":       str("Compound name."),
		"smiles":     str("Canonical SMILES of the compound."),
		"similarity": num("Estimated Tanimoto similarity between 0 and 1."),
		"source":     str("Source database."),
	}, "name", "smiles", "similarity")),
}, "query", "summary", "hits")

var conditionSetSchema = object(map[string]*genai.Schema{
	"temperature":   str("e.g. '80 °C'"),
	"solvent":       str(""),
	"catalyst":      str(""),
	"time":          str("e.g. '4 h'"),
	"expectedYield": num("Expected yield in percent."),
}, "temperature", "solvent", "catalyst", "time", "expectedYield")

var conditionReportSchema = object(map[string]*genai.Schema{
	"reaction":     str("The reaction being optimised."),
	"summary":      str("Rationale for the recommendation."),
	"recommended":  conditionSetSchema,
	"alternatives": array("Alternative condition sets.", conditionSetSchema),
}, "reaction", "summary", "recommended")

var reactionPredictionSchema = object(map[string]*genai.Schema{
	"products": array("An array of product molecules and their yields.", object(map[string]*genai.Schema{
		"molecule":   str("The chemical name of the product molecule."),
		"mol_string": str("The SMILES string for the product molecule structure."),
		"yield":      num("The predicted yield of the product as a percentage (e.g., 95 for 95%)."),
	}, "molecule", "mol_string", "yield")),
	"conditions":      str("The optimal reaction conditions (e.g., temperature, catalyst)."),
	"confidenceScore": num("A score from 0 to 100 indicating the model's confidence in the prediction."),
}, "products", "conditions", "confidenceScore")

var generatedMoleculeSchema = object(map[string]*genai.Schema{
	"name":       str("The IUPAC or common name of the generated molecule."),
	"mol_string": str("The Canonical SMILES string for the generated molecule's structure."),
}, "name", "mol_string")
