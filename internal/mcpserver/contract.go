package mcpserver

// NoteFormat describes the layout of the daily notes Amber writes, for
// clients that read or post-process them.
const NoteFormat = `# Amber Daily Note Format

One note per calendar day, stored as ` + "`" + `daily/YYYY-MM-DD.md` + "`" + ` under the Amber base directory.
A note is regenerated (overwritten) each time the day is summarized again.

## Frontmatter

` + "```" + `yaml
---
date: 2024-05-01      # the day the note covers
topics:               # what the day was about
  - ref-watcher
people:               # collaborators mentioned in the events
  - Ada
---
` + "```" + `

## Sections

Only sections with content appear, in this order:

- **Shipped**: completed features/fixes
- **Worked On**: in-progress work
- **Decisions**: technical decisions made
- **Discovered**: new tools, techniques, insights
- **Links**: relevant URLs from commits/events
- **People**: collaborators and their contributions
- **Events**: meetings, reviews, discussions

Entries cite concrete references: commit hashes, file names, branch names.
`
