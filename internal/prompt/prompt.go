// Package prompt holds the French prompts sent to the language models: the
// grounded-answer template of the question-answering engine, the agent
// system prompt and the synthesizer instructions.
package prompt

import (
	"fmt"
	"strings"
)

// answerTemplate is filled with the retrieved context and the question.
const answerTemplate = `Tu es un assistant spécialisé dans l'analyse des documents officiels du Sénégal, en particulier les documents budgétaires et financiers.

CONTEXTE (extrait des documents officiels) :
%s

QUESTION : %s

INSTRUCTIONS :
- Réponds uniquement en te basant sur le contexte fourni
- Si l'information n'est pas dans le contexte, dis-le clairement
- Sois précis et factuel
- Utilise les chiffres exacts du document
- Réponds en français

RÉPONSE :`

// Build returns the generation prompt for question grounded in context.
// Both values are inserted verbatim.
func Build(question, context string) string {
	return fmt.Sprintf(answerTemplate, context, question)
}

// AgentSystem is the system prompt of the agent. It names the two tools and
// orders them: internal documents first, the ministry web search only when
// they are insufficient.
const AgentSystem = `Tu es un assistant expert sur les finances publiques du Sénégal.

Tu disposes de deux outils :
- search_rag_database : recherche dans les documents budgétaires officiels indexés localement.
- search_ministere_web : recherche sur les sites officiels du ministère des Finances et de Vie Publique.

Règles :
1. Utilise uniquement les outils disponibles pour répondre, jamais tes connaissances générales.
2. Commence toujours par search_rag_database.
3. Si et seulement si le résultat est insuffisant ou indique qu'aucune information n'a été trouvée, appelle search_ministere_web.
4. Si un outil renvoie une erreur, essaie l'autre outil avant de conclure.
5. Conserve les liens (URL) trouvés par la recherche web et cite-les dans ta réponse.
6. Si une question ne concerne aucun de tes outils, indique-le clairement.
7. Réponds en français, de façon précise, avec les chiffres exacts des sources.`

// EmptySource marks a retrieval block that brought back nothing.
const EmptySource = "(aucune information fournie par cette source)"

// SynthesizerSystem instructs the synthesizer to merge two retrieval
// results into a JSON object.
const SynthesizerSystem = `Tu es un analyste des finances publiques du Sénégal. Tu reçois une question et deux blocs d'information : l'un issu des documents budgétaires indexés, l'autre issu d'une recherche web sur les sites officiels.

Produis une réponse unique et cohérente :
- Fusionne les informations des deux blocs sans les contredire ; signale explicitement toute divergence de chiffres.
- Si un bloc est vide ou contient "` + EmptySource + `", mentionne-le explicitement dans ta réponse.
- N'invente aucune information absente des blocs.
- Réponds en français.

Renvoie UNIQUEMENT un objet JSON, sans texte autour, de la forme :
{"synthesizedAnswer": "<réponse>", "sourceDocuments": ["<source ou lien>", "..."]}`

// Synthesis returns the user message of the synthesizer. Blank blocks are
// replaced by [EmptySource].
func Synthesis(question, ragResult, webResult string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION : %s\n\n", question)
	fmt.Fprintf(&b, "INFORMATIONS DES DOCUMENTS INDEXÉS :\n%s\n\n", orEmpty(ragResult))
	fmt.Fprintf(&b, "INFORMATIONS DE LA RECHERCHE WEB :\n%s", orEmpty(webResult))
	return b.String()
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptySource
	}
	return s
}
