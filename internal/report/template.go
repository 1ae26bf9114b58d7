package report

// htmlTemplate is the static shell around the rendered line table. The
// %s placeholders are, in order: <title>, heading text, the navigation
// list, and the line table body.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; background: #fff; color: #24292f; margin: 2rem; }
h1 { font-size: 1.1rem; }
nav ul { list-style: none; padding: 0; font-size: 0.85rem; }
nav a { color: #0969da; text-decoration: none; }
nav a:hover { text-decoration: underline; }
table { border-collapse: collapse; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 0.85rem; width: 100%%; }
td.gutter { color: #8c959f; text-align: right; padding: 0 0.75rem; user-select: none; width: 1%%; white-space: nowrap; }
td.code { padding: 0 0.75rem; white-space: pre; }
tr.added { background: #e6ffec; }
tr.added td.gutter { background: #ccffd8; }
tr.removed { background: #ffebe9; }
tr.removed td.gutter { background: #ffd7d5; }
</style>
</head>
<body>
<h1>%s</h1>
<nav><ul>
%s</ul></nav>
<table>
%s</table>
</body>
</html>
`
