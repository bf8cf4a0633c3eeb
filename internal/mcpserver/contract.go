package mcpserver

// DocFormatContract describes the authoring rules LLM consumers should
// follow when creating or updating corpus documents.
const DocFormatContract = `# Folio Document Format Contract

Every Markdown document stored in Folio SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # OPTIONAL – falls back to the first H1, then the file name
description: One-line summary       # OPTIONAL – shown in search results and page metadata
sidebar_position: 2                 # OPTIONAL – non-negative integer; orders the sidebar
---

# Title as an H1 heading

Body text in standard Markdown (GitHub Flavored Markdown).

Link to other documents with relative paths: [build guide](guides/build.md).
` + "```" + `

## Rules

1. **Front matter is optional.** When present, the opening ` + "`---`" + ` must be the
   first line of the file and the block must close with a second ` + "`---`" + ` line.
2. **Known fields are typed.** ` + "`title`" + ` and ` + "`description`" + ` are strings;
   ` + "`sidebar_position`" + ` is a non-negative integer. Wrong types are lint errors.
   Unknown fields are allowed and preserved.
3. **Give every document a title.** Either a front-matter ` + "`title`" + ` or a leading
   ` + "`# H1`" + ` heading; otherwise the sidebar label degrades to the file name.
4. **Links are standard Markdown and relative.** ` + "`[label](other.md)`" + ` resolves
   against the document's own directory; ` + "`[label](/guides/build.md)`" + ` resolves
   from the corpus root. A directory link with a trailing slash
   (` + "`[guides](guides/)`" + `) lands on that directory's ` + "`index.md`" + `.
5. **Fragments must match heading anchors.** ` + "`[setup](install.md#setup)`" + ` is
   checked against the target's heading slugs.
6. **Close every code fence.** An unclosed ` + "```` ``` ````" + ` fence is a lint error at
   the opening line. Use ` + "```` ```mermaid ````" + ` fences for diagrams; they are
   rendered client-side.
7. **` + "`index.md`" + ` speaks for its directory.** Its title and position label and
   order the directory's sidebar category.
8. **File paths** end with ` + "`.md`" + `, use forward slashes, and stay inside the corpus.
9. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Upload assets via the ` + "`upload_asset`" + ` tool. It returns a ` + "`markdownImage`" + ` field
  ready to paste into the document body.
- Assets are stored in the shared ` + "`attachments/`" + ` directory (flat, no sub-folders).
- Reference them with the absolute path: ` + "`![description](/attachments/filename.png)`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "````" + `markdown
---
title: Circuit breaker
description: Stop cascading failures by failing fast
sidebar_position: 3
---

# Circuit breaker

Wrap calls to a remote service and trip open after repeated failures.

![State diagram](/attachments/circuit-breaker-states.png)

## When to use it

- Downstream dependencies with unpredictable latency
- See also [retry](retry.md) and [timeouts](/patterns/timeouts.md#budgets)

` + "```" + `mermaid
graph LR; Closed-->Open; Open-->HalfOpen; HalfOpen-->Closed;
` + "```" + `
` + "````" + `
`
