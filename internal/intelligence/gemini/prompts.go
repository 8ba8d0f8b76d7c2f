package gemini

import "fmt"

// systemPrompt is sent as the system instruction with every call.
const systemPrompt = `You are ChemXGen-Ultra, a highly specialized chemical AI trained on the ChEMBL, PubChem and Reaxys databases.
1. Always verify valency and chemical stability before outputting a structure.
2. If generating synthesis routes, ensure every reaction step is literature-precedented.
3. Return data strictly in the requested JSON format.
4. Always use Canonical SMILES for molecule structures. Do not use V2000 MOL blocks unless explicitly asked.
5. If a structure is invalid, do not hallucinate; reject it or correct it explicitly.`

func synthesisPrompt(target string, routes int) string {
	return fmt.Sprintf(`Devise %d distinct, high-confidence retrosynthesis routes for:
%s

Constraint: Max 4 steps per route.
Requirement: Return 'product_smiles' for every step. Ensure all SMILES are chemically valid string representations.
Optimize for: Cost and Yield.`, routes, target)
}

func toxicityPrompt(molecule string) string {
	return fmt.Sprintf(`Perform a deep toxicology assessment on:
%s

Cross-reference structural alerts (PAINS, Brenk). Estimate LD50. Return high-confidence risk scores.`, molecule)
}

func propertyPrompt(molecule string) string {
	return fmt.Sprintf(`Calculate ADMET properties for:
%s

Precision: High. Ensure LogP and TPSA conform to Lipinski's Rule of 5 validation.`, molecule)
}

func similarityPrompt(molecule, database string) string {
	if database == "" {
		database = "ChEMBL"
	}
	return fmt.Sprintf(`Find up to 10 known compounds in %s that are structurally similar to:
%s

Return each hit with its name, Canonical SMILES, an estimated Tanimoto similarity between 0 and 1, and the source database.
Order hits by decreasing similarity.`, database, molecule)
}

func conditionsPrompt(reaction string) string {
	return fmt.Sprintf(`Recommend optimal reaction conditions for:
%s

Give one recommended set (temperature, solvent, catalyst, time, expected yield in percent) and up to 3 alternatives.`, reaction)
}

func reactionPrompt(r1, r2 string) string {
	return fmt.Sprintf(`Task: Predict major products and yield.
Reactants: %s + %s.
Use high-precision mode. Verify all stereochemistry.`, r1, r2)
}

func generatePrompt(description string) string {
	return fmt.Sprintf(`Generate a novel, synthesizable molecule for: %q.
Ensure the SMILES is 100%% valid. Verify ring aromaticity.`, description)
}
