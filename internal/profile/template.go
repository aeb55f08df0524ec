package profile

// DefaultTemplate is the starter profile written by Init.
const DefaultTemplate = `version: 1
profile_name: "local"

rules:
  - id: neighborhood_sunset_flats
    description: "Mentions Sunset Flats (neighborhood)"
    type: keyword_any
    enabled: true
    keywords:
      - "sunset flats"
      - "sunset flat"
    min_hits: 1

  - id: city_code_changes_residential
    description: "City code / ordinance changes, especially residential"
    type: keyword_with_context
    enabled: true
    keywords:
      - "ordinance"
      - "city code"
      - "zoning code"
      - "code amendment"
      - "ordinance amendment"
      - "amendment to"
      - "chapter"
      - "section"
      - "emmc"
    context_keywords:
      - "amend"
      - "amendment"
      - "repeal"
      - "adopt"
      - "adoption"
      - "update"
      - "revise"
      - "modify"
      - "change"
      - "first reading"
      - "second reading"
      - "public hearing"
      - "proposed ordinance"
      - "draft ordinance"
      - "residential"
      - "single-family"
      - "multi-family"
      - "dwelling"
      - "accessory dwelling"
      - "adu"
    window_chars: 400
    min_hits: 1

  - id: laundromat_new_or_approved
    description: "Laundromat mentioned in a build/approval context"
    type: keyword_with_context
    enabled: true
    keywords:
      - "laundromat"
      - "washateria"
      - "coin laundry"
    context_keywords:
      - "conditional use"
      - "special use"
      - "permit"
      - "approval"
      - "approve"
      - "application"
      - "site plan"
      - "development"
      - "build"
      - "construct"
      - "proposed"
      - "rezoning"
      - "zoning"
      - "public hearing"
    window_chars: 300
    min_hits: 1

output:
  evidence:
    snippet_chars: 260
    max_snippets_per_rule: 5
`
