package config

// defaultResearchers is the curated list of high-impact AI researchers used
// by the Layer 2 boost. Names are matched case-insensitively as substrings of
// paper author strings. Weight 0 means "use FilterConfig.BoostPerMatch".
// Edit freely as the field evolves.
func defaultResearchers() []ResearcherConfig {
	names := []string{
		// Deep learning pioneers
		"Yann LeCun",
		"Yoshua Bengio",
		"Geoffrey Hinton",

		// OpenAI / former OpenAI
		"Ilya Sutskever",
		"Andrej Karpathy",
		"John Schulman",
		"Paul Christiano",
		"Alec Radford",

		// DeepMind / Google
		"Demis Hassabis",
		"David Silver",
		"Oriol Vinyals",
		"Jeff Dean",
		"Quoc Le",
		"Noam Shazeer",
		"Samy Bengio",

		// Berkeley / Stanford / CMU
		"Pieter Abbeel",
		"Sergey Levine",
		"Chelsea Finn",
		"Percy Liang",
		"Christopher Manning",
		"Fei-Fei Li",
		"Jure Leskovec",
		"Ruslan Salakhutdinov",
		"Tom Mitchell",

		// Transformers / attention
		"Ashish Vaswani",
		"Jakob Uszkoreit",
		"Llion Jones",

		// Diffusion / generative
		"Yang Song",
		"Prafulla Dhariwal",
		"Alex Nichol",
		"Jonathan Ho",

		// RLHF / alignment
		"Jan Leike",
		"Ziegler", // Daniel Ziegler

		// Agents / RAG / memory
		"Harrison Chase",
		"Langchain",
		"Omar Khattab",

		// Meta AI
		"Yann Dauphin",
		"Luke Zettlemoyer",
		"Mike Lewis",
		"Tim Dettmers",

		// Mistral / open-source LLMs
		"Guillaume Lample",
		"Alexandre Sablayrolles",
	}

	researchers := make([]ResearcherConfig, 0, len(names))
	for _, name := range names {
		researchers = append(researchers, ResearcherConfig{Name: name})
	}
	return researchers
}
