package extractor

// SnapshotScript runs in the rendered page and returns a PageSnapshot. It
// only collects raw text; every verdict rule lives in Analyze.
//
// Shadow roots are entered recursively, so nested components are covered as
// long as the roots were opened before the page scripts ran.
const SnapshotScript = `(() => {
  const snapshot = { scripts: [], shadowAreas: [], tableAreas: [] };
  const text = (el) => el ? (el.textContent || '').trim() : null;

  for (const script of document.querySelectorAll('script')) {
    const content = script.textContent || '';
    if (content.includes('jsonData')) {
      snapshot.scripts.push(content);
    }
  }

  const containerSel = '.ticket-item, .area-item, .ticket-container, .area-container, ' +
    '[class*="ticket"], [class*="area"], tr.gridc';
  const nameSel = '.name, .title, h3, h4, [class*="name"], [class*="title"], td:first-child';
  const statusSel = '.status, .amount, .availability, [class*="status"], [class*="amount"], td:nth-child(4)';

  const visitShadow = (root) => {
    for (const container of root.querySelectorAll(containerSel)) {
      const nameEl = container.querySelector(nameSel);
      const statusEl = container.querySelector(statusSel);
      if (nameEl || statusEl) {
        snapshot.shadowAreas.push({ name: text(nameEl), status: text(statusEl) });
      }
    }
    for (const el of root.querySelectorAll('*')) {
      if (el.shadowRoot) visitShadow(el.shadowRoot);
    }
  };
  for (const el of document.querySelectorAll('*')) {
    if (el.shadowRoot) visitShadow(el.shadowRoot);
  }

  const table = Array.from(document.querySelectorAll('table')).find((t) =>
    t.id === 'AreaTable' ||
    (typeof t.className === 'string' && t.className.includes('area')) ||
    t.querySelector('tr.gridc') !== null);
  if (table) {
    for (const row of table.querySelectorAll('tr.gridc')) {
      const cells = row.querySelectorAll('td');
      if (cells.length >= 4) {
        snapshot.tableAreas.push({ name: text(cells[1]), status: text(cells[3]) });
      }
    }
  }

  return snapshot;
})()`
