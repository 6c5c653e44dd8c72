package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# Smart Librarian configuration
version: "1.0"

ai:
  # openai or ollama
  provider: openai
  chat_model: gpt-4o-mini
  embed_model: text-embedding-3-small
  # empty uses the provider default endpoint
  endpoint: ""
  # prefer OPENAI_API_KEY or LIBRARIAN_AI_API_KEY over storing the key here
  api_key: ""
  # title selection temperature; the justification always uses 0.1
  temperature: 0.2
  timeout: 60s
  # extra attempts after the first request; 0 sends once
  max_retries: 0
  retry_delay: 1s

storage:
  db_path: ./chroma/librarian.db
  collection: books
  # l2 (squared Euclidean) or cosine; fixed once a collection is populated
  metric: l2
  # keep vectors in memory and rebuild on every start
  memory: false
  catalog_path: ./data/book_summaries.json
  prefs_path: ./data/user_prefs.json
  history_path: ./data/log.csv

retrieval:
  k: 5
  # candidates shown to the model and cited in the answer
  grounding_size: 3
  snippet_runes: 280
  summary_runes: 800
  # score shift applied to liked and disliked titles
  delta: 0.05
  # extra refusal terms, added to the built-in list
  denylist: []
  # extra phrases that mark a request to write a book instead of finding one
  triggers: []

index:
  batch_size: 64
  # drop the collection before every rebuild
  reset: true
  # minimum spacing between embedding requests; negative disables throttling
  batch_interval: 250ms
  # quiet period before a watched catalog is rebuilt
  debounce: 500ms

media:
  assets_dir: ./assets/covers
  # read the answer aloud (text-to-speech)
  speech: false
  # draw a cover for the picked title
  cover: false
  speech_model: ""
  voice: ""
  speech_format: mp3
  image_model: ""
  image_size: ""
  transcription_model: ""
  language: ro

output:
  # text, json, markdown or csv
  default_format: text
  # auto, always or never
  color_mode: auto
  verbose: false
  # text or logfmt
  log_format: text
  timestamp_format: "2006-01-02 15:04:05"
  show_emoji: true
`
}

// MinimalSampleConfig returns a compact configuration with the settings
// most deployments change
func MinimalSampleConfig() string {
	return `version: "1.0"

ai:
  provider: openai
  chat_model: gpt-4o-mini
  embed_model: text-embedding-3-small

storage:
  db_path: ./chroma/librarian.db
  catalog_path: ./data/book_summaries.json

output:
  default_format: text
`
}
