package mapcmd

// APIGuide is an offline cheat sheet for the browser map JavaScript
// API. The reasoning engine has no internet access, so this list must
// stay rich enough to cover the major actions it can take.
const APIGuide = `
Core navigation
- zoomToXY({ x, y, level?, marker: Boolean }): move the map to coordinates, optionally drop a marker; level is an optional zoom level (0-10).
- getXY(): switches the pointer to crosshair mode and returns the clicked coordinate. Before using it, first ask the user "is it ok to click on the map to get coordinates?" and only then issue the tool request.
- getCenter(): returns the current map center { x, y }.
- setCenter({ x, y }): set the center point.
- setBackground({ backgroundId: number }): switch basemap. 0-Streets & buildings, 1-Aerial 2023, 2-Combined, 3-CIR, 5-TA 1930, 6-Map 1935, 7-Jerusalem 1926, 8-Haifa 1919, 9-Topographic, 11-No background, 16-Aerial 2003, 17-Aerial 2004, 18-Aerial 2006, 19-Aerial 2013, 20-Aerial 2005, 21-Aerial 2008, 24-Aerial 2019, 27-Aerial 2022, 32-Aerial 2021.
- getBackground(): returns the current background id.
- zoomIn(): increase zoom level by 1.
- zoomOut(): decrease zoom level by 1.
- getZoomLevel(): returns the current zoom level.
- getMapTolerance(): returns map tolerance in meters.
- refreshResource({ layerName: string }): refresh a specific layer.
- gpsOn().
- gpsOff().
- getGPSLocation().
- setMapMarker({ x, y }): place a custom marker on the map.
- clearMapMarker(): removes all custom markers.

Drawing, editing, measuring
- draw({ drawType: mapAPI.drawType.[Point|Polyline|Polygon|Rectangle|Circle] }): asks the user to draw a shape; the geometry comes back in WKT format.
- editDrawing(): lets the user edit the last drawn geometry; callback returns WKT.
- zoomToDrawing(): zooms to the last drawn or edited geometry.
- clearDrawing(): clears the last drawn or edited geometry.
- clearDrawings(): clears all drawings.
- showMeasure().
- closeMeasure().
- showPrint(): screenshot of the map.
- closePrint().
- showExportMap().
- closeExportMap().
- closeOpenApps(): closes any open print/measure/export apps.

Layers & styling
- setVisibleLayers({ layersOn: string[], layersOff?: string[] }): toggle layer visibility.
- setLayerOpacity({ layerName: string, opacity: number }): set opacity for a single layer, 0 to 100.
- refreshLayer({ layerName?: string }).
- setHeatLayer({ points: { point: { x, y }, attributes: { val1?, val2? } }[], options: { valueField, gradient?, radius?, opacity?, blur?, xField?, yField? } }): creates a client-side heatmap layer from weighted points.
- removeHeatLayer(): removes the heatmap layer.
- getLayerRenderer({ LayerNames: string[] }): get renderer info for one or more layers.
- filterLayers({ layerName: string, whereClause: string, zoomToExtent?: boolean }): filter a single layer.
- selectFeaturesOnMap({ layers: string[], drawType?, whereClause?: Record<string, string>, selectOnMap?: boolean, isZoomToExtent?: boolean, returnFields?: Record<string, string[]> }): select and optionally zoom to features.
- closeBubble(): close any open info bubble on the map.

Search, locate, geocode
- identifyByXY({ x: number, y: number }): identify general features at a point (not layer-specific).
- identifyByXYAndLayer({ x: number, y: number, layers: string[] }): identify features at a point in specific layers.
- searchAndLocate({ type: mapAPI.locateType.[addressToLotParcel|lotParcelToAddress], address?: string, lot?: number, parcel?: number }): locates or reverse-locates by address or lot/parcel.
- getLayerData({ LayerName: string, Point: { x, y }, Radius: number }): get data from a layer around a point, radius in meters.

Spatial analysis
- intersectFeatures({ address?: string, geometry?: string, layerName: string, fields?: string[], getShapes?: boolean, whereClause?: string }): finds layer features by address or WKT geometry, optionally filtering and returning shapes.
- searchInLayer({ layerName, fieldName, fieldValues, highlight?, showBubble?, outLineColor?, fillColor? }): searches features in a layer by field values, optionally highlighting and styling them.

General rules
- whereClause is a single SQL-style filter string made of one or more (condition) blocks, where each condition compares a field to a value using =, <>, <, >, >=, <=, or IN (...). String values go in single quotes, numbers without quotes; combine conditions with AND or OR. Example: "(SETL_NAME = 'תל אביב-יפו') AND (COMPANY = 'פז')".
- Keep commands minimal: do only what the user asked, no filler actions.
- If a parameter is unknown or you are unsure of the correct function, ask a short clarifying question instead of guessing.
`
