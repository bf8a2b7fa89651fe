package catalog

// catalogSchema is the JSON Schema the catalog document must satisfy
// before any structural checks run. Shape errors (missing fields,
// wrong types, non-positive targets) fail here with a precise path.
var catalogSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subjects": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":      "string",
						"minLength": 1,
					},
					"levels": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"level": map[string]any{
									"type":      "string",
									"minLength": 1,
								},
								"target_a": map[string]any{
									"type":             "number",
									"exclusiveMinimum": 0,
								},
								"target_b": map[string]any{
									"type":             "number",
									"exclusiveMinimum": 0,
								},
								"question_link": map[string]any{
									"type": "string",
								},
								"answer_link": map[string]any{
									"type": "string",
								},
								"tracks_mistakes": map[string]any{
									"type": "boolean",
								},
								"variants": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"name": map[string]any{
												"type":      "string",
												"minLength": 1,
											},
											"question_link": map[string]any{
												"type": "string",
											},
											"answer_link": map[string]any{
												"type": "string",
											},
										},
										"required":             []any{"name"},
										"additionalProperties": false,
									},
								},
							},
							"required":             []any{"level", "target_a", "target_b", "question_link", "answer_link"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []any{"name", "levels"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"subjects"},
	"additionalProperties": false,
}
