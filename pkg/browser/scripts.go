package browser

// OpenShadowRootsScript upgrades every attachShadow({mode: 'closed'}) call to
// 'open' so the vendor's hidden subtrees become reachable via el.shadowRoot.
// It only works when registered before the page's own scripts run.
const OpenShadowRootsScript = `
(function() {
    const originalAttachShadow = Element.prototype.attachShadow;
    Element.prototype.attachShadow = function(options) {
        if (options && options.mode === 'closed') {
            options = Object.assign({}, options, { mode: 'open' });
        }
        return originalAttachShadow.call(this, options);
    };
})();
`

// StealthScript hides the most common headless-automation tells.
const StealthScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['zh-TW', 'zh', 'en-US', 'en']),
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: { runtime: {} },
            writable: true,
            enumerable: true,
            configurable: false
        });
    }

    const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
    if (originalQuery) {
        window.navigator.permissions.query = (parameters) => (
            parameters.name === 'notifications'
                ? Promise.resolve({ state: Notification.permission })
                : originalQuery(parameters)
        );
    }
})();
`
