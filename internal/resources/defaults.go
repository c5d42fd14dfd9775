package resources

import "senseibot/internal/store"

// defaultCatalog seeds a starter curriculum the first time the bot runs
// with no resources file. Admins replace the entries with real links.
func defaultCatalog() map[string][]Resource {
	return map[string][]Resource{
		"getting-started": {
			{
				Meta:        meta(1),
				Title:       "Intro to AI",
				URL:         "https://example.com/ai-intro",
				Description: "A first course on core AI concepts",
				Difficulty:  "beginner",
				Tags:        []string{"ai", "intro", "fundamentals"},
			},
			{
				Meta:        meta(2),
				Title:       "Python Basics",
				URL:         "https://example.com/python-basics",
				Description: "The Python groundwork needed for AI programming",
				Difficulty:  "beginner",
				Tags:        []string{"python", "programming", "fundamentals"},
			},
		},
		"data-science": {
			{
				Meta:        meta(3),
				Title:       "Data Analysis Primer",
				URL:         "https://example.com/data-science",
				Description: "Data analysis fundamentals with pandas",
				Difficulty:  "intermediate",
				Tags:        []string{"data-analysis", "pandas", "visualization"},
			},
			{
				Meta:        meta(4),
				Title:       "Statistics Essentials",
				URL:         "https://example.com/statistics",
				Description: "The statistics every AI practitioner needs",
				Difficulty:  "intermediate",
				Tags:        []string{"statistics", "probability", "math"},
			},
		},
		"machine-learning": {
			{
				Meta:        meta(5),
				Title:       "Machine Learning Basics",
				URL:         "https://example.com/ml-basics",
				Description: "Machine learning fundamentals with scikit-learn",
				Difficulty:  "intermediate",
				Tags:        []string{"machine-learning", "classification", "regression"},
			},
			{
				Meta:        meta(6),
				Title:       "Applied Machine Learning",
				URL:         "https://example.com/ml-practice",
				Description: "Hands-on machine learning with real datasets",
				Difficulty:  "advanced",
				Tags:        []string{"machine-learning", "practice", "case-studies"},
			},
		},
		"deep-learning": {
			{
				Meta:        meta(7),
				Title:       "Neural Networks Intro",
				URL:         "https://example.com/nn-intro",
				Description: "Neural network concepts and a first implementation",
				Difficulty:  "intermediate",
				Tags:        []string{"neural-networks", "deep-learning", "fundamentals"},
			},
			{
				Meta:        meta(8),
				Title:       "Deep Learning Tutorial",
				URL:         "https://example.com/dl-tutorial",
				Description: "Building deep learning models with PyTorch",
				Difficulty:  "advanced",
				Tags:        []string{"deep-learning", "pytorch", "cnn", "rnn"},
			},
		},
		"nlp": {
			{
				Meta:        meta(9),
				Title:       "NLP Primer",
				URL:         "https://example.com/nlp-intro",
				Description: "Natural language processing basics and practice",
				Difficulty:  "intermediate",
				Tags:        []string{"nlp", "text-processing", "sentiment-analysis"},
			},
			{
				Meta:        meta(10),
				Title:       "Transformer Models Explained",
				URL:         "https://example.com/transformers",
				Description: "How transformer models like BERT and GPT work",
				Difficulty:  "advanced",
				Tags:        []string{"nlp", "transformers", "bert", "gpt"},
			},
		},
	}
}

func meta(id int) store.Meta { return store.Meta{ID: id} }
