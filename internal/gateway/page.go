package gateway

// monitorPage is the single-page monitoring UI. It submits crawls and
// searches through the gateway's forwarding routes and polls /status
// every two seconds to render the fleet table.
const monitorPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CrawlGrid</title>
<style>
  body { font-family: sans-serif; margin: 2rem; background: #fafafa; color: #222; }
  h1 { margin-bottom: 0.2rem; }
  section { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 1rem; margin-bottom: 1rem; }
  input[type=text] { width: 24rem; padding: 0.3rem; }
  input[type=number] { width: 4rem; padding: 0.3rem; }
  button { padding: 0.3rem 0.9rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ddd; padding: 0.35rem 0.6rem; text-align: left; font-size: 0.9rem; }
  th { background: #f0f0f0; }
  .running { color: #167d2e; font-weight: bold; }
  .idle { color: #996c00; }
  .not-active { color: #b00020; font-weight: bold; }
  pre { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>CrawlGrid</h1>
<p>Distributed crawl &amp; search pipeline</p>

<section>
  <h2>Submit crawl</h2>
  <input type="text" id="crawl-url" placeholder="example.com or https://example.com/page">
  <label>max depth <input type="number" id="crawl-depth" value="2" min="0"></label>
  <label><input type="checkbox" id="crawl-restrict"> stay on domain</label>
  <button onclick="submitCrawl()">Crawl</button>
  <pre id="crawl-result"></pre>
</section>

<section>
  <h2>Search</h2>
  <input type="text" id="search-q" placeholder="keywords">
  <button onclick="runSearch()">Search</button>
  <ol id="search-results"></ol>
</section>

<section>
  <h2>Fleet status</h2>
  <table>
    <thead><tr><th>Node</th><th>Role</th><th>IP</th><th>URLs</th><th>Status</th><th>Threads</th></tr></thead>
    <tbody id="status-body"></tbody>
  </table>
</section>

<script>
async function submitCrawl() {
  const body = {
    url: document.getElementById('crawl-url').value,
    max_depth: document.getElementById('crawl-depth').value,
    domain_restricted: document.getElementById('crawl-restrict').checked
  };
  const resp = await fetch('/crawl', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body)
  });
  const data = await resp.json();
  document.getElementById('crawl-result').textContent = data.message || data.error;
}

async function runSearch() {
  const q = document.getElementById('search-q').value;
  const resp = await fetch('/search?keyword=' + encodeURIComponent(q));
  const data = await resp.json();
  const list = document.getElementById('search-results');
  list.innerHTML = '';
  (data.urls || []).forEach(function (url) {
    const li = document.createElement('li');
    li.textContent = url;
    list.appendChild(li);
  });
}

async function refreshStatus() {
  try {
    const resp = await fetch('/status?detailed=true');
    const nodes = await resp.json();
    const body = document.getElementById('status-body');
    body.innerHTML = '';
    (nodes || []).forEach(function (node) {
      const threads = (node.threads_info || [])
        .map(function (t) { return t.id + ': ' + t.status; }).join('<br>');
      const cls = node.status.replace(' ', '-');
      body.innerHTML += '<tr><td>' + node.node_id + '</td><td>' + node.role +
        '</td><td>' + node.ip + '</td><td>' + node.url_count +
        '</td><td class="' + cls + '">' + node.status +
        '</td><td>' + threads + '</td></tr>';
    });
  } catch (err) { /* control plane unreachable; keep last view */ }
}

setInterval(refreshStatus, 2000);
refreshStatus();
</script>
</body>
</html>
`
